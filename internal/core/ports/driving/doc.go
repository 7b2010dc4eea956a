// Package driving holds the use-case interfaces the CLI, the MCP server and
// the folder watcher call. internal/core/services implements them.
package driving
