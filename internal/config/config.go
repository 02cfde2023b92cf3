package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the stage tracking service.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Clients ClientsConfig `yaml:"clients"`
	Fields  FieldsConfig  `yaml:"fields"`
	Lookups LookupsConfig `yaml:"lookups"`
	Logging LoggingConfig `yaml:"logging"`
	Cache   CacheConfig   `yaml:"cache"`
}

// ServerConfig controls the MCP transport and metrics listeners. When
// HTTPAddress is empty the MCP server runs on stdio.
type ServerConfig struct {
	HTTPAddress     string        `yaml:"httpAddress"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// ClientsConfig groups remote integrations.
type ClientsConfig struct {
	ATS ATSClientConfig `yaml:"ats"`
}

// ATSClientConfig configures access to the recruitment ATS API.
type ATSClientConfig struct {
	BaseURL string        `yaml:"baseURL"`
	APIKey  string        `yaml:"apiKey"`
	Timeout time.Duration `yaml:"timeout"`
}

// FieldsConfig holds the candidate custom-field reference IDs, which differ
// between ATS instances.
type FieldsConfig struct {
	DiscordID        string `yaml:"discordID"`
	Subscriber       string `yaml:"subscriber"`
	StageName        string `yaml:"stageName"`
	StageDate        string `yaml:"stageDate"`
	ActiveFlag       string `yaml:"activeFlag"`
	Guarantee        string `yaml:"guarantee"`
	Zone             string `yaml:"zone"`
	Province         string `yaml:"province"`
	DisqualifiedByID string `yaml:"disqualifiedByID"`
}

// LookupsConfig maps human-readable department and location names to ATS IDs.
type LookupsConfig struct {
	Departments map[string]string `yaml:"departments"`
	Locations   map[string]string `yaml:"locations"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls Valkey-backed caching of remote lookups.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	TLS          bool          `yaml:"tls"`
	CountsTTL    time.Duration `yaml:"countsTTL"`
	FieldDefsTTL time.Duration `yaml:"fieldDefsTTL"`
}

// Load initialises Config from a YAML file and optional environment
// overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("STAGETRACK_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.Clients.ATS.APIKey == "" {
		return nil, errors.New("ATS API key is required (set ATS_API_KEY)")
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Clients: ClientsConfig{
			ATS: ATSClientConfig{
				BaseURL: "https://api.viterbit.com/v1",
				Timeout: 10 * time.Second,
			},
		},
		Fields: FieldsConfig{
			DiscordID:        "67f69c61c26ebcaa2f024ea3",
			Subscriber:       "67fe75c8f8e7996e110cb5a0",
			StageName:        "682c9947fdbad58c810ddb8a",
			StageDate:        "6821ff159432bfca8407fbe4",
			ActiveFlag:       "68a455d5585b0d17c20bdcb1",
			Guarantee:        "68bea397f801385f0f0e0088",
			Zone:             "67c83def159fcdd58906e4c5",
			Province:         "67c84b1c21bda2b3c60fabea",
			DisqualifiedByID: "67496bc419367fe3810c6412",
		},
		Lookups: LookupsConfig{
			Departments: defaultDepartments(),
			Locations:   defaultLocations(),
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			CountsTTL:    time.Minute,
			FieldDefsTTL: 10 * time.Minute,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STAGETRACK_HTTP_ADDRESS"); v != "" {
		cfg.Server.HTTPAddress = v
	}
	if v := os.Getenv("STAGETRACK_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("ATS_BASE_URL"); v != "" {
		cfg.Clients.ATS.BaseURL = v
	}
	if v := os.Getenv("ATS_API_KEY"); v != "" {
		cfg.Clients.ATS.APIKey = v
	}
	if v := os.Getenv("ATS_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Clients.ATS.Timeout = d
		}
	}
	if v := os.Getenv("STAGETRACK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("STAGETRACK_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("STAGETRACK_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("STAGETRACK_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("STAGETRACK_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("STAGETRACK_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}

	for env, target := range map[string]*string{
		"DISCORD_ID_QUESTION_ID":     &cfg.Fields.DiscordID,
		"SUSCRIPTOR_QUESTION_ID":     &cfg.Fields.Subscriber,
		"CUSTOM_FIELD_STAGE_NAME_ID": &cfg.Fields.StageName,
		"CUSTOM_FIELD_STAGE_DATE_ID": &cfg.Fields.StageDate,
		"ACTIVO_INACTIVO_ID":         &cfg.Fields.ActiveFlag,
		"GARANTIA_100_DIAS_ID":       &cfg.Fields.Guarantee,
		"DISQUALIFIED_BY_ID":         &cfg.Fields.DisqualifiedByID,
	} {
		if v := os.Getenv(env); v != "" {
			*target = v
		}
	}
}

func defaultDepartments() map[string]string {
	return map[string]string{
		"Aerotermia":            "6823708a92b2ec408603a9aa",
		"Electricidad":          "674882703e806a32920f1c07",
		"Fontanería":            "682370bd680b48a79a0d5e73",
		"Instalaciones":         "682370c9b53725e32a021be9",
		"Mantenimiento general": "682370d5095d26419f0749f9",
		"Mecánica":              "682370e104990151bc037c18",
		"Climatización":         "6823645b14b4f3d6cf0437e2",
		"Gas":                   "682370c39aa0d1ef33070e81",
		"Albañilería":           "682364697248dfd911005c94",
		"Soldadura":             "682370edd758cbaa060c2257",
		"Telecomunicaciones":    "682370f383b0e1c2af0a8a2f",
		"Maquinista":            "682370dae0c16a69fd0457b4",
		"Pintura":               "682370e72d85ff622c023353",
		"Energías Renovables":   "67488288a1ae68e8920419cd",
		"Cristalería":           "682da6d711ae26612408119c",
		"Aluminería":            "682da6ced2805005700b889d",
		"Producción":            "682da6c54cc9378d560ba721",
		"Oficios":               "67f78168e15674453b0c34b1",
	}
}

func defaultLocations() map[string]string {
	return map[string]string{
		"Madrid":             "674f2f46c51a95550a07e205",
		"Valencia":           "6750104751972bd5c4034f61",
		"Ourense":            "67500f5d09cac50dbe062127",
		"Tarragona":          "675011443cc983b9e90b0c85",
		"Lleida":             "682444c64d6590aac40cf58d",
		"Málaga":             "675010dfbea835b2440414ba",
		"Bilbao":             "6750120b319ca9668909f319",
		"Cadiz":              "6750107dc737fb3bca0ca3c2",
		"Castellón":          "67501110c30a8e4c1c01becc",
		"Salamanca":          "68244593c5f75e96640ed0e6",
		"Barcelona":          "6750123a1496b55c61068d3d",
		"Segovia":            "675010a8c30a8e4c1c01bec0",
		"Jaén":               "6824446f8925c0253803b671",
		"Toledo":             "6824463e74e85ce43b060d33",
		"Murcia":             "67502cf3c9f7fbd36d083027",
		"Palma de Mallorca":  "6824445dafc1fcfb300110f4",
		"Navarra":            "68244530f1097783be0424bc",
		"León":               "682444b3c2490915090b06e8",
		"Sevilla":            "682445dcb0b47d4993085917",
		"Zaragoza":           "675011b1521ee3d3cb05b5a2",
		"Alicante":           "6824425a8a9153c125067c92",
		"Ciudad Real":        "6824439b17474c2ca50b1311",
	}
}
