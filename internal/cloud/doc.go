// Package cloud builds authenticated handles to the three provider
// capability groups the deploy pipeline consumes: compute environments,
// load balancers and DNS records.
//
// Each group is an interface covering only the calls the pipeline makes, so
// tests substitute fakes and the rest of the module never touches SDK
// construction.
package cloud
