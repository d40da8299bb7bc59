package binance

import "time"

// Config 描述 Binance Source 运行所需的参数。API key/secret 对公共
// 行情端点可以留空。
type Config struct {
	APIKey      string        `toml:"api_key"`
	APISecret   string        `toml:"api_secret"`
	BaseURL     string        `toml:"base_url"`
	HTTPTimeout time.Duration `toml:"http_timeout"`
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	return out
}
