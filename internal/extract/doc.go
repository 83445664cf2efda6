// Package extract reads Moodle pages.
//
// Two readers live here. Parser walks the x/net/html tree once and returns
// the title, links and forms of a document; login adapters use it for hidden
// fields such as logintoken. Page wraps a goquery document and answers the
// questions the crawl engine asks of a course site through CSS selectors:
// which tabs a view has, which sections and links it holds, where a
// resource or URL module really points, and what the session key is.
//
// ToText turns section HTML into the Markdown-flavoured text written to page
// artifacts, through html-to-markdown with relative references resolved
// first.
//
// Selectors target the Boost and Classic themes of Moodle 3.x and 4.x.
package extract
