// Package task runs durable background work. Tasks are saved to a TaskStore
// before they are queued, executed by a worker pool, and rebuilt through a
// Registry of factories when the process restarts or a task stalls.
package task
