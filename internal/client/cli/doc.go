// Package cli provides the interactive AliasVault command-line client.
//
// It wires configuration, local storage, the API client and an interactive
// REPL that supports online/offline operation. Typical flow: prompt for
// credentials, start a background connectivity watcher, and execute user
// commands.
//
// Key features:
//   - Register / Login / Logout (SRP, optional second factor, offline unlock)
//   - Pull / Push / Export of the encrypted vault
//   - Revision history and archived revisions
//   - Master password change and two-factor management
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
