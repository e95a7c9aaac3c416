package mcpserver

type contextKey string

const clientIPContextKey contextKey = "client_ip"
