package config

// MetricsConfig selects which sinks receive agent activity records.
type MetricsConfig struct {
	// PrometheusEnabled exposes a /metrics endpoint on PrometheusAddr.
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusAddr    string `json:"prometheus_addr"`
	// InfluxURL enables the InfluxDB sink when non-empty.
	InfluxURL    string `json:"influx_url"`
	InfluxToken  string `json:"influx_token"`
	InfluxOrg    string `json:"influx_org"`
	InfluxBucket string `json:"influx_bucket"`
}

// SetDefaults applies sane defaults.
func (c *MetricsConfig) SetDefaults() {
	if c.PrometheusAddr == "" {
		c.PrometheusAddr = ":9090"
	}
}
