// Package tools defines typed tools exposed over MCP. A tool declares its input
// as a Go struct; the input schema is reflected from the struct and the tool is
// registered with an MCP server by Register.
package tools
