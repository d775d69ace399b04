// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the sweep lifecycle (load, build, plan,
// run), decoupled from any specific entrypoint like a CLI or server.
package app
