package registry

import (
	"encoding/json"
	"os"

	"go.uber.org/zap"

	"github.com/automax/ivrflow/internal/domain"
	apperrors "github.com/automax/ivrflow/internal/errors"
)

// load reads every configured document, builds the indexes and validates
// the result. It never mutates the registry; the caller swaps the snapshot.
func load(paths Paths, logger *zap.Logger) (*Snapshot, error) {
	snap := &Snapshot{
		nodes:        make(map[int]*domain.Node),
		apis:         make(map[int]*domain.ApiSpec),
		recordings:   make(map[int]*domain.RecordingProfile),
		languages:    make(map[int]*domain.LanguageRow),
		schedule:     make(map[string]domain.TimeWindow),
		unavailDates: make(map[string]struct{}),
	}

	if err := loadFlow(paths.Flow, snap, logger); err != nil {
		return nil, err
	}
	if err := loadCatalog(paths.Catalog, snap); err != nil {
		return nil, err
	}
	if paths.Agents != "" {
		if err := loadAgents(paths.Agents, snap); err != nil {
			return nil, err
		}
	}
	if paths.Recordings != "" {
		if err := loadRecordings(paths.Recordings, snap); err != nil {
			return nil, err
		}
	}

	if err := validate(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func loadFlow(path string, snap *Snapshot, logger *zap.Logger) error {
	var doc domain.FlowDocument
	if err := readJSON(path, &doc); err != nil {
		return err
	}

	for fi := range doc.IVRConfiguration {
		flow := &doc.IVRConfiguration[fi]
		for i := range flow.IVRProcessFlow {
			node := &flow.IVRProcessFlow[i]
			if _, dup := snap.nodes[node.ID]; dup {
				return apperrors.Newf(apperrors.CodeDuplicateNode, "node id %d defined twice", node.ID)
			}
			snap.nodes[node.ID] = node
			if node.IsStart {
				if snap.start != nil {
					return apperrors.Newf(apperrors.CodeConfigParse,
						"nodes %d and %d both flagged as start", snap.start.ID, node.ID)
				}
				snap.start = node
			}
		}
		if err := applySettings(flow.GeneralSettingValues, snap, logger); err != nil {
			return err
		}
	}
	return nil
}

// applySettings interprets the recognized general settings. Unrecognized
// entries are kept out of the snapshot; the engine has no use for them.
func applySettings(settings []domain.GeneralSetting, snap *Snapshot, logger *zap.Logger) error {
	for _, gs := range settings {
		switch gs.SettingID {
		case domain.SettingLanguageList:
			var rows []domain.LanguageRow
			if err := json.Unmarshal([]byte(gs.SettingValue), &rows); err != nil {
				return apperrors.Wrap(err, "registry.applySettings",
					apperrors.CodeConfigParse, "malformed LanguageList setting")
			}
			for i := range rows {
				snap.languages[rows[i].LanguageCode] = &rows[i]
			}

		case domain.SettingAvailabilitySchedule:
			var windows map[string]domain.TimeWindow
			if err := json.Unmarshal([]byte(gs.SettingValue), &windows); err != nil {
				return apperrors.Wrap(err, "registry.applySettings",
					apperrors.CodeConfigParse, "malformed IVRAvailablitySchedule setting")
			}
			snap.schedule = windows

		case domain.SettingUnavailabilityDates:
			var dates []string
			if err := json.Unmarshal([]byte(gs.SettingValue), &dates); err != nil {
				return apperrors.Wrap(err, "registry.applySettings",
					apperrors.CodeConfigParse, "malformed IVRUnavailablityDates setting")
			}
			for _, d := range dates {
				snap.unavailDates[d] = struct{}{}
			}

		case domain.SettingUnavailabilityAudio:
			snap.unavailAudio = gs.SettingValue

		case domain.SettingSTTResponseField:
			snap.sttResponseField = gs.SettingValue

		default:
			logger.Debug("ignoring unrecognized general setting",
				zap.Int("setting_id", gs.SettingID),
				zap.String("key", gs.SettingKey),
			)
		}
	}
	return nil
}

func loadCatalog(path string, snap *Snapshot) error {
	var doc domain.CatalogDocument
	if err := readJSON(path, &doc); err != nil {
		return err
	}
	for i := range doc.Result {
		api := &doc.Result[i]
		snap.apis[api.APIID] = api
	}
	return nil
}

func loadAgents(path string, snap *Snapshot) error {
	var doc domain.AgentsDocument
	if err := readJSON(path, &doc); err != nil {
		return err
	}
	snap.agents = doc.Agents
	snap.queueName = doc.QueueName
	return nil
}

func loadRecordings(path string, snap *Snapshot) error {
	var doc domain.RecordingsDocument
	if err := readJSON(path, &doc); err != nil {
		return err
	}
	for i := range doc.Profiles {
		p := &doc.Profiles[i]
		snap.recordings[p.RecordingTypeID] = p
	}
	return nil
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.Wrap(err, "registry.readJSON", apperrors.CodeConfigParse, "cannot read "+path)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.Wrap(err, "registry.readJSON", apperrors.CodeConfigParse, "malformed JSON in "+path)
	}
	return nil
}
