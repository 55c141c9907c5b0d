// Package monitor collects system telemetry from remote Linux hosts over SSH.
//
// Every poll sends one composite shell command (BuildMetricsCommand) to a
// host, parses the sectioned transcript (package parsers), turns cumulative
// counters into rates (DeltaEngine) and stores the merged result as the
// host's latest Snapshot.
//
// # Key Components
//
//	Collector   - Schedules polls on a ticker, bounded by a worker semaphore
//	Executor    - Runs the command on a host; SSHExecutor is the real one
//	Pool        - Keeps one SSH connection per host between polls
//	DeltaEngine - Per-host rate and CPU usage state
//	Store       - Latest Snapshot per host ID
//	KnownInterfaces - Last seen interfaces per host, cached on disk
//
// # Poll Flow
//
//  1. The ticker fires (default every 3s)
//  2. Hosts whose previous poll is still running are skipped
//  3. Execute runs the command with the configured command timeout
//  4. parsers.Parse rejects transcripts missing the cpu or Filesystem lines
//  5. Under the collector mutex, the delta state advances and the new
//     Snapshot replaces the old one, unless the host was evicted meanwhile
//
// A failed poll leaves the previous Snapshot untouched.
package monitor
