// Package gotap is a client library for IVOA Table Access Protocol (TAP)
// services and the archive-specific facades built on top of it.
//
// The root package implements the generic TAP stack: a connection layer for
// building and issuing HTTP requests against a TAP endpoint, the UWS
// asynchronous job lifecycle (submit, poll phase, fetch results), parsers
// for UWS job documents, VOTable results and VOSI table metadata, and
// session authentication. Archive facades (gaia, jwst, esasky, mocserver)
// wrap this package with query builders for their respective services.
package gotap
