// Package crawler drives the crawl of one domain: homepage fetch, link
// discovery, prioritized subpage fetches and the fold of every page into a
// single contact record. It also defines the interfaces shared by the
// fetchers, the batch scheduler and the API.
package crawler
