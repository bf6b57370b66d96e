/*
Package session implements session management and persistence orchestration.

A Manager loads a session from its store, steps it with the interpreter and
saves the result, holding a per-session lock (and, across replicas, a
distributed lock) for the whole read-modify-write.
*/
package session
