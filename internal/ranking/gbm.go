package ranking

import (
	"math"
	"sort"

	"stormlightlabs.org/rankcore/internal/core"
)

// trainingRow is one game-perspective's feature vector and residual target
// for the L13 ML layer: {self_power, opp_power, power_diff, age_gap,
// cross_gender}. age_gap and cross_gender are always 0 in the current
// engine since a single Rank() call operates within one cohort and the
// repository's cohort window only surfaces intra-cohort games; the fields
// are carried so a future cross-cohort feed needs no schema change.
type trainingRow struct {
	features [5]float64
	target   float64
	weight   float64
}

// stump is a single-split regression tree: the weakest possible learner,
// boosted in an ensemble the way MLESolver in the rating-engine reference
// iterates toward a fitted model rather than calling out to a library.
type stump struct {
	featureIdx         int
	threshold          float64
	leftVal, rightVal float64
}

func (s stump) predict(f [5]float64) float64 {
	if f[s.featureIdx] <= s.threshold {
		return s.leftVal
	}
	return s.rightVal
}

func candidateThresholds(rows []trainingRow, feature int) []float64 {
	vals := make([]float64, len(rows))
	for i, r := range rows {
		vals[i] = r.features[feature]
	}
	sort.Float64s(vals)

	out := make([]float64, 0, len(vals))
	for i := 0; i+1 < len(vals); i++ {
		if vals[i] == vals[i+1] {
			continue
		}
		out = append(out, (vals[i]+vals[i+1])/2)
	}
	return out
}

func fitStump(rows []trainingRow) stump {
	bestErr := math.Inf(1)
	var best stump

	for feature := 0; feature < len(rows[0].features); feature++ {
		for _, threshold := range candidateThresholds(rows, feature) {
			var lSum, lW, rSum, rW float64
			for _, r := range rows {
				if r.features[feature] <= threshold {
					lSum += r.target * r.weight
					lW += r.weight
				} else {
					rSum += r.target * r.weight
					rW += r.weight
				}
			}
			var lVal, rVal float64
			if lW > 0 {
				lVal = lSum / lW
			}
			if rW > 0 {
				rVal = rSum / rW
			}

			var sqErr float64
			for _, r := range rows {
				pred := rVal
				if r.features[feature] <= threshold {
					pred = lVal
				}
				d := r.target - pred
				sqErr += d * d * r.weight
			}

			if sqErr < bestErr {
				bestErr = sqErr
				best = stump{featureIdx: feature, threshold: threshold, leftVal: lVal, rightVal: rVal}
			}
		}
	}
	return best
}

// boostedRegressor is a shrinkage-boosted ensemble of stumps fit to the
// residual of the previous round, the gradient-boosting shape named by the
// spec with no third-party ML library in scope to provide it.
type boostedRegressor struct {
	base   float64
	stumps []stump
	lr     float64
}

func (m *boostedRegressor) Predict(f [5]float64) float64 {
	out := m.base
	for _, s := range m.stumps {
		out += m.lr * s.predict(f)
	}
	return out
}

func weightedMean(rows []trainingRow) float64 {
	var sum, w float64
	for _, r := range rows {
		sum += r.target * r.weight
		w += r.weight
	}
	if w == 0 {
		return 0
	}
	return sum / w
}

func trainBoostedRegressor(rows []trainingRow, cfg MLConfig) *boostedRegressor {
	model := &boostedRegressor{base: weightedMean(rows), lr: cfg.LearningRate}

	residuals := make([]float64, len(rows))
	for i, r := range rows {
		residuals[i] = r.target - model.base
	}

	for round := 0; round < cfg.Rounds; round++ {
		fitRows := make([]trainingRow, len(rows))
		for i, r := range rows {
			fitRows[i] = trainingRow{features: r.features, target: residuals[i], weight: r.weight}
		}
		s := fitStump(fitRows)
		model.stumps = append(model.stumps, s)

		for i, r := range rows {
			residuals[i] -= cfg.LearningRate * s.predict(r.features)
		}
	}
	return model
}

// applyMLResidualLayer applies L13: trains on games older than 30 days,
// predicts a per-team recency-weighted residual, normalizes it within the
// cohort, and blends it into powerscore_adj scaled by how strong the
// team's schedule is (ml_scale).
func applyMLResidualLayer(teams map[core.MasterID]*teamState, views []*perspective, cfg Config) {
	const trainCutoffDays = 30.0

	var trainRows []trainingRow
	for _, v := range views {
		self, ok := teams[v.masterID]
		if !ok || v.daysAgo < trainCutoffDays {
			continue
		}
		opp := strengthOf(teams, v.oppID, 0.5)
		trainRows = append(trainRows, trainingRow{
			features: [5]float64{self.strength, opp, self.strength - opp, 0, 0},
			target:   clip(v.margin, -cfg.ML.ResidualClip, cfg.ML.ResidualClip) - v.expectedMargin,
			weight:   v.weight,
		})
	}

	if len(trainRows) < cfg.ML.TrainMinRows {
		for _, t := range teams {
			v := t.powerscoreAdj
			t.powerscoreML = &v
		}
		return
	}

	model := trainBoostedRegressor(trainRows, cfg.ML)

	raw := make(map[core.MasterID]float64, len(teams))
	wsum := make(map[core.MasterID]float64, len(teams))
	for _, v := range views {
		self, ok := teams[v.masterID]
		if !ok {
			continue
		}
		opp := strengthOf(teams, v.oppID, 0.5)
		features := [5]float64{self.strength, opp, self.strength - opp, 0, 0}
		raw[v.masterID] += model.Predict(features) * v.weight
		wsum[v.masterID] += v.weight
	}

	overperf := make(map[core.MasterID]float64, len(teams))
	for id := range teams {
		if w := wsum[id]; w > 0 {
			overperf[id] = raw[id] / w
		}
	}
	mlNorm := normalizeToRange(overperf, -0.5, 0.5)

	for id, t := range teams {
		scale := clip((t.sosNorm-0.45)/0.15, 0, 1)
		val := clip(t.powerscoreAdj+cfg.ML.Alpha*mlNorm[id]*scale, 0, 1)
		t.powerscoreML = &val
	}
}

func normalizeToRange(vals map[core.MasterID]float64, lo, hi float64) map[core.MasterID]float64 {
	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	out := make(map[core.MasterID]float64, len(vals))
	span := maxV - minV
	for id, v := range vals {
		if span <= 1e-9 {
			out[id] = (lo + hi) / 2
			continue
		}
		out[id] = lo + (v-minV)/span*(hi-lo)
	}
	return out
}
