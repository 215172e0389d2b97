// Package query derives the views a UI renders from a list of items:
// filtered subsets, sorted orderings, dashboard counts and the distinct
// values that feed filter dropdowns. Every function is pure and leaves its
// input untouched.
package query
