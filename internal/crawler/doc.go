// Package crawler drives a Fetcher across a site.
//
// # Architecture
//
// The Spider keeps an explicit worklist of {url, depth} items and processes
// it breadth-first, one depth level at a time. A URL enters the visited set
// when it is enqueued, so no URL is fetched twice within a run no matter
// how often it is linked. Two bounds stop the crawl:
//   - MaxDepth: links found on pages at MaxDepth are not followed
//   - MaxPages: a page budget reserved atomically before every fetch and
//     refunded when the fetch fails, so the page table never exceeds it
//
// With a concurrency above one, every level is fetched by a bounded worker
// group; the visited set and the budget keep the same guarantees.
//
// # Scope
//
// Only links on the seed's host are followed, and at most LinkCap new links
// are enqueued per page. Glob ignore/follow patterns narrow the crawl
// further.
//
// # Politeness
//
//   - Optional robots.txt compliance (RobotsGate)
//   - Optional delay between requests (token bucket from x/time/rate)
//
// # Usage
//
//	spider := crawler.NewSpider(f, crawler.WithMaxDepth(2), crawler.WithMaxPages(20))
//	pages, err := spider.Crawl(ctx, "https://example.com")
package crawler
