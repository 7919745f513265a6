// Package container builds and reads mod package archives.
//
// An archive is a zip file holding exactly one manifest member, exactly one
// blob member with the concatenated payload bytes, and zero or more preview
// image members under randomized names. The builder owns blob offset
// bookkeeping and output-name collision avoidance; the reader exposes the
// manifest and images without ever loading the blob, which is handed to the
// installer as a random-access handle.
package container
