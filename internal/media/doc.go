// Package media classifies candidate files into the four review categories
// using the configured extension table.
package media
