package main

// The contextKey type provides unique keys to store and retrieve request-scoped values without the risk of
// naming collisions.
type contextKey string

const authStateContextKey = contextKey("authState")
