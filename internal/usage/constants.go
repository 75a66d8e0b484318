package usage

// BatchFlushThreshold is the number of buffered entries that triggers an
// immediate write without waiting for the flush timer.
const BatchFlushThreshold = 100
