// Package runtime provides the execution context for stackit commands.
//
// A Context bundles what every action needs: the engine over the opened
// repository, the transaction manager, the logger, the repository config and
// a lazily connected forge client.
package runtime
