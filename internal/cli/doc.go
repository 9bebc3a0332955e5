// Package cli implements the reviews command line tool.
package cli
