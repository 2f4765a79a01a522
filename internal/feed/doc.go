// Package feed fans completed passes out to live subscribers such as the
// dashboard's event stream.
package feed
