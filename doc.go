// Package filebridge adapts callback-based native filesystem plugins into
// blocking, context-aware Go operations.
//
// Native filesystem plugins deliver every result through paired
// success/failure callbacks and report failures as numeric File API error
// codes. The [Bridge] validates relative-path arguments before any plugin
// interaction, converts each callback pair into a single-shot settle, and
// enriches every numeric code with its human-readable name from the code
// table in [Code].
//
// # Drivers
//
// Plugins are supplied by drivers registered with [RegisterDriver]:
//
//   - In-memory (github.com/gobeaver/filebridge/driver/memory)
//   - Local filesystem (github.com/gobeaver/filebridge/driver/local)
//   - SFTP (github.com/gobeaver/filebridge/driver/sftp)
//
// # Basic Usage
//
//	import "github.com/gobeaver/filebridge/driver/memory"
//
//	bridge := filebridge.New(memory.New())
//	ctx := context.Background()
//
//	// Create and write a file
//	_, err := bridge.CreateFile(ctx, "memory://", "hello.txt", true)
//	_, err = bridge.WriteFile(ctx, "memory://", "hello.txt",
//	    []byte("Hello, World!"), filebridge.WithReplace(true))
//
//	// Read it back
//	text, err := bridge.ReadAsText(ctx, "memory://", "hello.txt")
//
//	// List directory contents
//	entries, err := bridge.ListDir(ctx, "memory://", "")
//
// Every path argument below a base URL must be relative; a leading slash
// rejects with ENCODING_ERR before the plugin is consulted.
//
// # Error Codes
//
// Failures carry an [*Error] pairing the numeric code with the name from
// the File API table (codes 1-12) plus two codes raised by this layer:
// WRONG_ENTRY_TYPE_ERR (13) when a lookup finds an entry of the wrong
// kind, and DIR_READ_ERR (14) when draining a directory listing fails.
// Use the predicates to classify:
//
//	if filebridge.IsNotFound(err) {
//	    // target does not exist
//	}
//
// # Optional Capabilities
//
// Drivers may implement optional capability interfaces. Use type
// assertions, or go through the Bridge helpers:
//
//	token, err := bridge.Watch(ctx, "**/*.json")
//	if err == nil && token.HasChanged() {
//	    // handle change
//	}
//
// # Configuration
//
// The driver can be chosen through the environment (FILEBRIDGE_DRIVER and
// friends, see [Config]); [Init] and [Default] manage a global instance:
//
//	if err := filebridge.Init(); err != nil {
//	    log.Fatal(err)
//	}
//	bridge := filebridge.FB()
//
// # Mount Manager
//
// The [MountManager] routes operations over several drivers by URL prefix:
//
//	mounts := filebridge.NewMountManager()
//	mounts.Mount("memory://", memory.New())
//	mounts.Mount("file:///data", localPlugin)
package filebridge
