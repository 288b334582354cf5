// Package file provides filesystem implementations of the content ports.
//
// Adapters:
//   - ContentStore: chunk bodies as <root>/<id>.md
//   - BlobStore: archive artifacts as <root>/<id>.md<codec extension>
//
// Every chunk ID is validated with domain.ValidateChunkID and the resolved
// path must stay inside the store root, so no ID can escape it.
package file
