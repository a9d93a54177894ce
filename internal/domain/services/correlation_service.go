package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"ctiforge/internal/config"
	"ctiforge/internal/domain/models"
	"ctiforge/pkg/logger"
)

// CorrelationEngine groups independently-observed events into campaigns and
// computes a per-event correlation confidence. One Correlate call is one
// run: the evidence graph is built from scratch and discarded afterwards.
type CorrelationEngine struct {
	config config.CorrelationConfig
	logger *logger.Logger
}

// NewCorrelationEngine creates a new correlation engine
func NewCorrelationEngine(cfg config.CorrelationConfig, log *logger.Logger) *CorrelationEngine {
	return &CorrelationEngine{
		config: cfg,
		logger: log.WithComponent("correlation-engine"),
	}
}

// Correlate builds the evidence graph over the given events, extracts
// campaigns from its connected components, and scores every event. Missing
// optional evidence (no indicators, no analysis, no cluster id) degrades
// the relevant score term to zero; it is never an error.
func (e *CorrelationEngine) Correlate(events []models.Event, iocs []models.IOC, analyses []models.AnalysisResult) ([]models.CorrelationResult, []models.Campaign) {
	startTime := time.Now()

	eventMap := make(map[string]models.Event, len(events))
	for _, event := range events {
		eventMap[event.EventID] = event
	}

	analysisMap := make(map[string]models.AnalysisResult, len(analyses))
	for _, analysis := range analyses {
		analysisMap[analysis.EventID] = analysis
	}

	// Indicator reuse: normalized value -> distinct referencing events.
	iocToEvents := make(map[string]map[string]bool)
	for _, ioc := range iocs {
		if _, ok := eventMap[ioc.SourceEventID]; !ok {
			continue
		}
		set, ok := iocToEvents[ioc.NormalizedValue]
		if !ok {
			set = make(map[string]bool)
			iocToEvents[ioc.NormalizedValue] = set
		}
		set[ioc.SourceEventID] = true
	}

	sharedByEvent := make(map[string][]string)
	for value, eventSet := range iocToEvents {
		if len(eventSet) < 2 {
			continue
		}
		for eventID := range eventSet {
			sharedByEvent[eventID] = append(sharedByEvent[eventID], value)
		}
	}
	for eventID := range sharedByEvent {
		sort.Strings(sharedByEvent[eventID])
	}

	// Time buckets.
	temporalKeys := make(map[string]string, len(events))
	temporalGroups := make(map[string][]string)
	for _, event := range events {
		key := TemporalKey(event.FetchedAt, e.config.TemporalWindowHours)
		temporalKeys[event.EventID] = key
		temporalGroups[key] = append(temporalGroups[key], event.EventID)
	}

	// Analysis clusters; unclustered events never group.
	clusterGroups := make(map[int][]string)
	for _, analysis := range analyses {
		if analysis.ClusterID == nil {
			continue
		}
		if _, ok := eventMap[analysis.EventID]; !ok {
			continue
		}
		clusterGroups[*analysis.ClusterID] = append(clusterGroups[*analysis.ClusterID], analysis.EventID)
	}

	graph := e.buildGraph(eventMap, iocToEvents, clusterGroups, temporalGroups)

	campaigns, eventToCampaign := e.extractCampaigns(graph, eventMap, sharedByEvent)

	maxShared := 0
	for _, values := range sharedByEvent {
		if len(values) > maxShared {
			maxShared = len(values)
		}
	}

	results := make([]models.CorrelationResult, 0, len(events))
	for eventID, event := range eventMap {
		analysis, hasAnalysis := analysisMap[eventID]
		shared := sharedByEvent[eventID]

		sharedScore := 0.0
		if maxShared > 0 && len(shared) > 0 {
			sharedScore = float64(len(shared)) / float64(maxShared)
			if sharedScore > 1 {
				sharedScore = 1
			}
		}

		clusterScore := 0.0
		if hasAnalysis && analysis.ClusterID != nil && len(clusterGroups[*analysis.ClusterID]) > 1 {
			clusterScore = 1.0
		}

		temporalScore := 0.0
		if len(temporalGroups[temporalKeys[eventID]]) > 1 {
			temporalScore = 1.0
		}

		incidentConf := 0.0
		sectorConf := 0.0
		if hasAnalysis {
			incidentConf = analysis.IncidentConfidence
			sectorConf = analysis.SectorConfidence
		}

		weights := e.config.Weights
		confidence := clamp(
			weights.SharedIOC*sharedScore+
				weights.AnalysisCluster*clusterScore+
				weights.Temporal*temporalScore+
				weights.IncidentConf*incidentConf+
				weights.SectorConf*sectorConf,
			0, 1)

		var campaignID *string
		if id, ok := eventToCampaign[eventID]; ok {
			campaignID = &id
		}

		if shared == nil {
			shared = []string{}
		}
		tactics := MapTactics(event.CleanText)
		if tactics == nil {
			tactics = []string{}
		}

		results = append(results, models.CorrelationResult{
			EventID:         eventID,
			CampaignID:      campaignID,
			SharedIOCs:      shared,
			TemporalCluster: temporalKeys[eventID],
			MitreTactics:    tactics,
			Confidence:      confidence,
		})
	}

	// Canonical output order: re-runs on identical input are byte-identical.
	sort.Slice(results, func(i, j int) bool {
		return results[i].EventID < results[j].EventID
	})

	e.logger.Info().
		Int("events", len(results)).
		Int("campaigns", len(campaigns)).
		Int("graph_edges", graph.EdgeCount()).
		Dur("duration", time.Since(startTime)).
		Msg("correlation complete")

	return results, campaigns
}

// buildGraph assembles the evidence graph from the three edge sources
func (e *CorrelationEngine) buildGraph(
	eventMap map[string]models.Event,
	iocToEvents map[string]map[string]bool,
	clusterGroups map[int][]string,
	temporalGroups map[string][]string,
) *EvidenceGraph {
	graph := NewEvidenceGraph()
	for eventID := range eventMap {
		graph.AddNode(eventID)
	}

	// Shared-indicator edges, weighted by distinct shared values per pair.
	pairCounts := make(map[edgeKey]int)
	for value, eventSet := range iocToEvents {
		if len(eventSet) < 2 {
			continue
		}
		group := e.capGroup(setToSortedSlice(eventSet), "shared_ioc", value)
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				pairCounts[newEdgeKey(group[i], group[j])]++
			}
		}
	}
	for pair, count := range pairCounts {
		if count >= e.config.MinSharedIOCs {
			graph.AddEdge(pair.A, pair.B, models.ReasonSharedIOC)
			graph.SetSharedIOCWeight(pair.A, pair.B, count)
		}
	}

	if e.config.UseAnalysisClusters {
		for clusterID, group := range clusterGroups {
			if len(group) < 2 {
				continue
			}
			group = e.capGroup(sortedCopy(group), "analysis_cluster", fmt.Sprintf("%d", clusterID))
			for i := 0; i < len(group); i++ {
				for j := i + 1; j < len(group); j++ {
					graph.AddEdge(group[i], group[j], models.ReasonAnalysisCluster)
				}
			}
		}
	}

	if e.config.UseTemporalWindow {
		for key, group := range temporalGroups {
			if len(group) < 2 {
				continue
			}
			group = e.capGroup(sortedCopy(group), "temporal_window", key)
			for i := 0; i < len(group); i++ {
				for j := i + 1; j < len(group); j++ {
					graph.AddEdge(group[i], group[j], models.ReasonTemporalWindow)
				}
			}
		}
	}

	return graph
}

// capGroup bounds the quadratic pair expansion for pathological groups, e.g.
// one indicator referenced by tens of thousands of events. The group must
// already be sorted so truncation is deterministic.
func (e *CorrelationEngine) capGroup(group []string, reason, key string) []string {
	if e.config.MaxGroupSize <= 0 || len(group) <= e.config.MaxGroupSize {
		return group
	}
	e.logger.Warn().
		Str("reason", reason).
		Str("group", key).
		Int("size", len(group)).
		Int("cap", e.config.MaxGroupSize).
		Msg("evidence group exceeds cap, truncating")
	return group[:e.config.MaxGroupSize]
}

// extractCampaigns materializes a Campaign per qualifying connected
// component. Components are numbered after sorting by their smallest member
// event id, so campaign ids are reproducible across runs.
func (e *CorrelationEngine) extractCampaigns(
	graph *EvidenceGraph,
	eventMap map[string]models.Event,
	sharedByEvent map[string][]string,
) ([]models.Campaign, map[string]string) {
	campaigns := []models.Campaign{}
	eventToCampaign := make(map[string]string)

	sequence := 0
	for _, component := range graph.Components() {
		if len(component) < e.config.MinCampaignSize {
			continue
		}
		sequence++
		campaignID := fmt.Sprintf("CAMP-%04d", sequence)

		campaign := e.buildCampaign(campaignID, component, eventMap, sharedByEvent)
		campaigns = append(campaigns, campaign)
		for _, eventID := range component {
			eventToCampaign[eventID] = campaignID
		}
	}

	return campaigns, eventToCampaign
}

// buildCampaign aggregates member metadata into a Campaign entity
func (e *CorrelationEngine) buildCampaign(
	campaignID string,
	memberIDs []string,
	eventMap map[string]models.Event,
	sharedByEvent map[string][]string,
) models.Campaign {
	var startTime, endTime time.Time
	texts := make([]string, 0, len(memberIDs))
	for i, eventID := range memberIDs {
		event := eventMap[eventID]
		if i == 0 || event.FetchedAt.Before(startTime) {
			startTime = event.FetchedAt
		}
		if i == 0 || event.FetchedAt.After(endTime) {
			endTime = event.FetchedAt
		}
		texts = append(texts, event.CleanText)
	}

	iocSet := make(map[string]bool)
	for _, eventID := range memberIDs {
		for _, value := range sharedByEvent[eventID] {
			iocSet[value] = true
		}
	}
	iocs := setToSortedSlice(iocSet)

	// One mapper pass over the concatenated member texts; tactic order
	// follows the keyword table.
	tactics := MapTactics(strings.Join(texts, "\n"))
	if tactics == nil {
		tactics = []string{}
	}

	// Saturating heuristic rewarding both component size and IOC diversity.
	confidence := clamp(0.5+0.1*float64(len(memberIDs))+0.05*float64(len(iocs)), 0, 1)

	return models.Campaign{
		CampaignID:   campaignID,
		Name:         campaignID,
		StartTime:    startTime,
		EndTime:      endTime,
		EventIDs:     memberIDs,
		IOCs:         iocs,
		MitreTactics: tactics,
		Confidence:   confidence,
	}
}

func setToSortedSlice(set map[string]bool) []string {
	values := make([]string, 0, len(set))
	for value := range set {
		values = append(values, value)
	}
	sort.Strings(values)
	return values
}

func sortedCopy(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}
