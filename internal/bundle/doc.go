// Package bundle hands finished crawl results to their destination.
//
// A Bundle carries the validated canonical document together with the raw
// page table and the asset table. Emitters decide where the bundle goes;
// DirEmitter writes it to a local directory tree that a deployment step
// can publish as is.
package bundle
