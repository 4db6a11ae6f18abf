// Package workspace builds the directory Scala Steward works in and moves
// its workspace/ subdirectory in and out of the cache.
//
// Layout:
//
//	<dir>/workspace/  scratch space, cached between runs
//	<dir>/repos.md    repository list
//	<dir>/askpass.sh  git credential helper echoing the token
package workspace
