package hub

import "time"

// reconnectDelays is the escalating backoff table for event socket
// reconnection: quick retries for transient glitches, then slower probing,
// then a steady once-a-minute rhythm for extended outages.
var reconnectDelays = buildReconnectDelays()

func buildReconnectDelays() []time.Duration {
	table := make([]time.Duration, 0, 31)
	for i := 0; i < 10; i++ {
		table = append(table, 3*time.Second)
	}
	for i := 0; i < 20; i++ {
		table = append(table, 15*time.Second)
	}
	table = append(table, 60*time.Second)
	return table
}

// reconnectDelay returns the delay before the next connection attempt,
// indexed by the number of consecutive failed cycles and clamped at the
// table's steady-state tail.
func reconnectDelay(failures int) time.Duration {
	if failures < 0 {
		failures = 0
	}
	if failures >= len(reconnectDelays) {
		failures = len(reconnectDelays) - 1
	}
	return reconnectDelays[failures]
}
