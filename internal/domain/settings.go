package domain

// Well-known general setting ids the engine interprets.
const (
	SettingAvailabilitySchedule = 6  // weekly business-hours windows
	SettingUnavailabilityDates  = 7  // blackout dates, MMDDYYYY
	SettingUnavailabilityAudio  = 8  // audio played when closed
	SettingSTTResponseField     = 14 // response field carrying STT text
	SettingLanguageList         = 15 // language table rows
)

// GeneralSetting is one {SettingId, SettingnKey, SettingValue} record from
// the flow config. SettingValue is either a literal string or a JSON
// document, depending on the key. The Settingn spelling is the wire format's.
type GeneralSetting struct {
	SettingID    int    `json:"SettingId"`
	SettingKey   string `json:"SettingnKey"`
	SettingValue string `json:"SettingValue"`
}

// LanguageRow is one row of the LanguageList setting. A language-select
// node copies every field of the matched row into the variable store under
// the same names.
type LanguageRow struct {
	LanguageCode        int    `json:"LanguageCode"`
	LanguageName        string `json:"LanguageName"`
	TTSLanguageCode     string `json:"TTSLanguageCode"`
	STTLanguageCode     string `json:"STTLanguageCode"`
	TTSVoiceNameBuiltIn string `json:"TTSVoiceNameBuiltIn"`
	TTSVoiceNameCloud   string `json:"TTSVoiceNameCloud"`
}

// TimeWindow is one weekday's open window, in "h:mmAM"/"h:mmPM" form.
// An empty From and To means the weekday is closed.
type TimeWindow struct {
	From string `json:"From"`
	To   string `json:"To"`
}

// FlowConfig is the decoded ivrconfig.json document: general settings plus
// the ordered node list.
type FlowConfig struct {
	GeneralSettingValues []GeneralSetting `json:"GeneralSettingValues"`
	IVRProcessFlow       []Node           `json:"IVRProcessFlow"`
}

// FlowDocument is the top-level wrapper of ivrconfig.json.
type FlowDocument struct {
	IVRConfiguration []FlowConfig `json:"IVRConfiguration"`
}

// CatalogDocument is the top-level wrapper of the API catalog file.
type CatalogDocument struct {
	Result []ApiSpec `json:"result"`
}
