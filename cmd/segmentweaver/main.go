// Command segmentweaver renders, validates and imports segment documents,
// and serves them over HTTP and MCP.
package main

func main() {
	Execute()
}
