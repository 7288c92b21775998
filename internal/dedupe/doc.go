// Package dedupe tracks recently processed transport event ids so the
// bridge can ignore redeliveries. The tracker is TTL-based and size
// capped because event ids arrive indefinitely and the set must not
// grow without bound.
package dedupe
