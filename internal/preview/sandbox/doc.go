/*
Package sandbox implements the sandbox side of the preview sync protocol,
headless.

A browser preview loads the bootstrap document into an iframe; this package
is the equivalent for server-side use: a goja VM with an isolated global
scope plus a goquery-backed document standing in for the iframe's DOM. It
honors the same contract the bootstrap script does:

  - signals readiness immediately on (re)boot
  - replaces markup and stylesheet unconditionally on every update
  - remembers the last transmitted script and skips unchanged ones
  - wraps changed scripts in a fresh function scope before execution, so
    repeated top-level const/let/class declarations never collide
  - confines user-script faults to its own console

Sandboxed code cannot reach the filesystem, the network, or the host
process; Node globals are removed and timers are no-ops.
*/
package sandbox
