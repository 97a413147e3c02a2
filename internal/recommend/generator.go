// Package recommend turns a classification into structured action items.
// It is a pure lookup: no numeric work happens here.
package recommend

import (
	"fmt"

	"gobrittle/domain/brittleness"
	"gobrittle/domain/series"
)

// Categories
const (
	CategoryMonitoring = "monitoring"
	CategoryEscalation = "escalation"
	CategoryReferral   = "referral"
	CategoryTrend      = "trend"
	CategorySegment    = "segment_review"
)

// Priorities, by level
var priorities = [5]string{"routine", "routine", "elevated", "urgent", "immediate"}

var monitoring = map[series.Domain][5]string{
	series.DomainGlucose: {
		"Continue routine CGM review at the next scheduled visit.",
		"Review CGM data monthly and reinforce self-management education.",
		"Review CGM data every two weeks and adjust the insulin regimen.",
		"Review CGM data weekly with active insulin titration and hypoglycaemia alerts enabled.",
		"Review CGM data daily; evaluate for automated insulin delivery.",
	},
	series.DomainECG: {
		"Repeat ambulatory ECG only as clinically indicated.",
		"Repeat Holter monitoring within 6 months.",
		"Repeat Holter monitoring within 1 month and review QT-prolonging medication.",
		"Arrange continuous rhythm monitoring within 1 week.",
		"Arrange continuous in-hospital telemetry.",
	},
	series.DomainBloodPressure: {
		"Repeat ambulatory blood pressure monitoring annually.",
		"Repeat ambulatory blood pressure monitoring within 6 months.",
		"Repeat ambulatory blood pressure monitoring within 1 month and review home readings.",
		"Repeat ambulatory blood pressure monitoring within 2 weeks with treatment adjustment.",
		"Begin daily blood pressure monitoring under clinical supervision.",
	},
}

var escalation = [5]string{
	"No escalation required.",
	"Discuss the findings at the next routine appointment.",
	"Schedule a clinical review within two weeks.",
	"Schedule a clinical review within 48 hours.",
	"Seek same-day clinical assessment.",
}

var specialists = map[series.Domain]string{
	series.DomainGlucose:       "endocrinology",
	series.DomainECG:           "cardiology (electrophysiology)",
	series.DomainBloodPressure: "hypertension specialist",
}

// Generate maps the domain, level and trends to recommendations. It is
// total: every domain and level yields at least a monitoring and an
// escalation item.
func Generate(domain series.Domain, level brittleness.Level, overall brittleness.Trend, segments []brittleness.Segment) []brittleness.Recommendation {
	if level < brittleness.LevelI {
		level = brittleness.LevelI
	}
	if level > brittleness.LevelV {
		level = brittleness.LevelV
	}
	i := int(level) - 1
	priority := priorities[i]

	table, ok := monitoring[domain]
	if !ok {
		table = monitoring[series.DomainGlucose]
	}

	recs := []brittleness.Recommendation{
		{Category: CategoryMonitoring, Priority: priority, Text: table[i]},
		{Category: CategoryEscalation, Priority: priority, Text: escalation[i]},
	}

	if level >= brittleness.LevelIII {
		specialist := specialists[domain]
		if specialist == "" {
			specialist = "the relevant specialist"
		}
		recs = append(recs, brittleness.Recommendation{
			Category: CategoryReferral,
			Priority: priority,
			Text:     fmt.Sprintf("Refer to %s for a %s pattern.", specialist, level.Code()),
		})
	}

	switch overall {
	case brittleness.TrendWorsening:
		recs = append(recs, brittleness.Recommendation{
			Category: CategoryTrend,
			Priority: priorities[min(i+1, 4)],
			Text:     "Instability increased over the recording; shorten the review interval.",
		})
	case brittleness.TrendImproving:
		recs = append(recs, brittleness.Recommendation{
			Category: CategoryTrend,
			Priority: "routine",
			Text:     "Instability decreased over the recording; keep the current plan.",
		})
	}

	for _, seg := range segments {
		segLevel := brittleness.LevelForScore(seg.Score)
		if seg.Trend != brittleness.TrendWorsening && segLevel < brittleness.LevelIV {
			continue
		}
		recs = append(recs, brittleness.Recommendation{
			Category: CategorySegment,
			Priority: priorities[int(segLevel)-1],
			Text: fmt.Sprintf("Review segment %d (%s to %s): score %.1f, level %s, %s.",
				seg.Index+1,
				seg.StartTime.Format("2006-01-02 15:04"),
				seg.EndTime.Format("2006-01-02 15:04"),
				seg.Score, segLevel.Code(), seg.Trend),
		})
	}
	return recs
}
