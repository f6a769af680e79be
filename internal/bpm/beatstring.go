package bpm

// beatString is a chain of onsets whose successive intervals cluster within
// clusterWidthMs; average_interval/size/score per spec.md's data model.
type beatString struct {
	averageInterval float64
	size            int
	score           float64
}

func newBeatString(interval, score float64) *beatString {
	return &beatString{averageInterval: interval, size: 1, score: score}
}

func (b *beatString) addInterval(interval, score float64) {
	b.averageInterval = (float64(b.size)*b.averageInterval + interval) / float64(b.size+1)
	b.score += score
	b.size++
}

// intervalCluster groups recent accepted intervals for final smoothing.
type intervalCluster struct {
	averageInterval float64
	size            int
}

func newIntervalCluster(interval float64) *intervalCluster {
	return &intervalCluster{averageInterval: interval, size: 1}
}

func (c *intervalCluster) addInterval(interval float64) {
	c.averageInterval = (float64(c.size)*c.averageInterval + interval) / float64(c.size+1)
	c.size++
}

func (c *intervalCluster) clusterScore() float64 { return float64(c.size) }
