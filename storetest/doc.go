// Package storetest provides a conformance suite for [anystore.Store]
// implementations.
//
// Every backend and decorator in this module runs the suite from its own
// tests. The suite checks the contract shared by all stores: absence is not
// an error, Set is idempotent, Delete of an absent value succeeds, List
// reflects writes and Scope is equivalent to joining addresses.
//
// Example usage:
//
//	factory := func(t *testing.T) anystore.Store {
//		return NewMyStore()
//	}
//
//	storetest.Run(t, "MyStore", factory)
//
// Backends where an address cannot hold a value and children at once, such
// as a filesystem, pass [WithoutNestedValues].
package storetest
