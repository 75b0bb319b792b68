package domain

// FeatureConfig toggles feature blocks. The same config must be used at
// training and inference time; it is stored with every trained model.
type FeatureConfig struct {
	UseBasic            bool `json:"use_basic_features" mapstructure:"use_basic_features"`
	UseTeam             bool `json:"use_team_features" mapstructure:"use_team_features"`
	UseH2H              bool `json:"use_h2h_features" mapstructure:"use_h2h_features"`
	UseRecentForm       bool `json:"use_recent_form" mapstructure:"use_recent_form"`
	UseAdvanced         bool `json:"use_advanced_features" mapstructure:"use_advanced_features"`
	UseTemporal         bool `json:"use_temporal_features" mapstructure:"use_temporal_features"`
	RecentMatchesWindow int  `json:"recent_matches_window" mapstructure:"recent_matches_window"`
}

// DefaultFeatureConfig enables every block with a window of 5.
func DefaultFeatureConfig() FeatureConfig {
	return FeatureConfig{
		UseBasic:            true,
		UseTeam:             true,
		UseH2H:              true,
		UseRecentForm:       true,
		UseAdvanced:         true,
		UseTemporal:         true,
		RecentMatchesWindow: 5,
	}
}
