// Package secret resolves credentials referenced from configuration.
//
// A configuration value may be:
//   - a literal, returned unchanged after ${VAR} expansion (see ExpandEnvStrict)
//   - a full reference, secretref:<provider>:<ref>
//   - text with inline references, e.g. user:secretref:env:REDIS_PASSWORD
//
// Two providers are built in and registered on DefaultRegistry: "env" reads
// an environment variable and "file" reads a file such as a mounted
// container secret, trimming the trailing newline.
package secret
