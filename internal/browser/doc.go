// Package browser provides the tab/window service tabsaver captures from
// and restores to.
//
// Backends:
//
//   - SessionFile: reads a session export (JSON or YAML) listing windows and
//     their tabs, and opens restored tabs in the system browser.
//   - DevTools: queries a Chromium remote-debugging endpoint.
//   - Static: fixed in-memory documents, for tests.
//
// Session file format:
//
//	{"windows": [{"tabs": [{"url": "https://a.example", "incognito": false}]}]}
package browser
