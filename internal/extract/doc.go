// Package extract turns a page's HTML into typed content primitives.
//
// The extractor separates message content (headings, paragraphs, images,
// lists, links) from chrome (navigation, decorative icons, logos):
//   - images whose class or alt carries a decorative token are dropped;
//     those carrying "logo" are kept aside as logo candidates
//   - links whose class carries a navigation token, links inside
//     structural navigation and links without text are dropped
//   - content blocks are read from a copy of the document with all
//     navigation, header, footer and sidebar regions removed
//
// The token lists are configuration; DefaultDecorativeTokens and
// DefaultNavigationTokens hold the defaults.
package extract
