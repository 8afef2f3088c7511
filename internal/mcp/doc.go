// Package mcp serves governed GitHub tools (issues, labels, branches and
// starred repositories) over the Model Context Protocol.
//
// Every upstream tool call runs through a governance.Governor: it is rate
// limited per tool name and its result is converted to a JSON tree and
// sanitized before it reaches the client. Upstream failures are returned as
// tool results with IsError set rather than protocol errors.
//
// The server also exposes tool discovery (tool_search, tool_list) and a
// governance_status tool reporting the active policies and call windows.
package mcp
