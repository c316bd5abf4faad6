package session

// TreeStage describes a virtual tree's growth rendering bucket.
type TreeStage string

const (
	StageSeedling TreeStage = "seedling"
	StageSprout   TreeStage = "sprout"
	StageSapling  TreeStage = "sapling"
	StageYoung    TreeStage = "young"
	StageMature   TreeStage = "mature"
)

const maxTreeLevel = 10

// TreeLevel converts a point balance to a virtual tree level between 1 and
// 10. Each level costs a tenth of a real tree.
func TreeLevel(points, treeCost int) int {
	if treeCost <= 0 {
		return 1
	}
	perLevel := treeCost / 10
	if perLevel <= 0 {
		perLevel = 1
	}

	level := points/perLevel + 1
	if level > maxTreeLevel {
		return maxTreeLevel
	}
	if level < 1 {
		return 1
	}
	return level
}

// TreeProgress returns the fraction of progress toward a full tree, between
// 0 and 1.
func TreeProgress(points, treeCost int) float64 {
	if treeCost <= 0 || points <= 0 {
		return 0
	}
	p := float64(points) / float64(treeCost)
	if p > 1 {
		return 1
	}
	return p
}

// StageOf maps a tree level to its rendering stage. Total over 1..10;
// out-of-range levels clamp to the nearest stage.
func StageOf(level int) TreeStage {
	switch {
	case level >= 10:
		return StageMature
	case level >= 7:
		return StageYoung
	case level >= 5:
		return StageSapling
	case level >= 3:
		return StageSprout
	default:
		return StageSeedling
	}
}
