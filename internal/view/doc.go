// Package view renders saved identifiers and result banners to a terminal.
package view
