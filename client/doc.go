// Package client is the consumer-side companion to the auth service. It
// keeps the credential pair in a session store, attaches the access
// credential to outgoing requests, and coordinates refresh so that any
// number of concurrent requests hitting an expired credential produce a
// single refresh call against the server.
package client
