package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Texture  TextureConfig  `mapstructure:"texture"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Detector DetectorConfig `mapstructure:"detector"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	StaticDir    string        `mapstructure:"static_dir"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// StorageConfig 房间状态持久化配置，backend 为 file 或 redis
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	DataDir string `mapstructure:"data_dir"`
}

type UploadConfig struct {
	MaxSize      int64    `mapstructure:"max_size"`
	MaxHeight    int      `mapstructure:"max_height"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

type TextureConfig struct {
	LibraryDir        string   `mapstructure:"library_dir"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
	RepeatX           int      `mapstructure:"repeat_x"`
	RepeatY           int      `mapstructure:"repeat_y"`
	TileWidth         int      `mapstructure:"tile_width"`
	TileHeight        int      `mapstructure:"tile_height"`
}

type PipelineConfig struct {
	Mode          string `mapstructure:"mode"`
	ToneMode      string `mapstructure:"tone_mode"`
	BandHeight    int    `mapstructure:"band_height"`
	OutputFormat  string `mapstructure:"output_format"`
	JPEGQuality   int    `mapstructure:"jpeg_quality"`
	MaxConcurrent int    `mapstructure:"max_concurrent"`
	QueueTimeout  int    `mapstructure:"queue_timeout"`
}

type DetectorConfig struct {
	Iterations      int     `mapstructure:"iterations"`
	MaxSize         int     `mapstructure:"max_size"`
	MinAreaRatio    float64 `mapstructure:"min_area_ratio"`
	ApproxEpsilon   float64 `mapstructure:"approx_epsilon"`
	FlatnessKernel  int     `mapstructure:"flatness_kernel"`
	MorphKernelSize int     `mapstructure:"morph_kernel_size"`
}

// Load 从 YAML 文件加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("surfacekit")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 设置默认值
	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// New 使用默认配置路径加载配置
func New() *Config {
	cfg, err := Load("config.yaml")
	if err != nil {
		// 如果加载失败，返回默认配置
		return Default()
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":9000")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.static_dir", "./static")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.data_dir", "./data")

	v.SetDefault("upload.max_size", 10*1024*1024)
	v.SetDefault("upload.max_height", 600)
	v.SetDefault("upload.allowed_types", []string{"image/jpeg", "image/png", "image/jpg", "image/webp"})

	v.SetDefault("texture.library_dir", "./textures")
	v.SetDefault("texture.allowed_extensions", []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff", ".webp", ".tga"})
	v.SetDefault("texture.repeat_x", 6)
	v.SetDefault("texture.repeat_y", 6)
	v.SetDefault("texture.tile_width", 64)
	v.SetDefault("texture.tile_height", 64)

	v.SetDefault("pipeline.mode", "auto")
	v.SetDefault("pipeline.tone_mode", "global")
	v.SetDefault("pipeline.band_height", 32)
	v.SetDefault("pipeline.output_format", "jpg")
	v.SetDefault("pipeline.jpeg_quality", 92)
	v.SetDefault("pipeline.max_concurrent", 4)
	v.SetDefault("pipeline.queue_timeout", 30)

	v.SetDefault("detector.iterations", 5)
	v.SetDefault("detector.max_size", 800)
	v.SetDefault("detector.min_area_ratio", 0.02)
	v.SetDefault("detector.approx_epsilon", 0.02)
	v.SetDefault("detector.flatness_kernel", 15)
	v.SetDefault("detector.morph_kernel_size", 5)
}

// Default 返回内置默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":9000",
			Mode:         "debug",
			StaticDir:    "./static",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			TTL:      24 * time.Hour,
		},
		Storage: StorageConfig{
			Backend: "file",
			DataDir: "./data",
		},
		Upload: UploadConfig{
			MaxSize:      10 * 1024 * 1024,
			MaxHeight:    600,
			AllowedTypes: []string{"image/jpeg", "image/png", "image/jpg", "image/webp"},
		},
		Texture: TextureConfig{
			LibraryDir:        "./textures",
			AllowedExtensions: []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff", ".webp", ".tga"},
			RepeatX:           6,
			RepeatY:           6,
			TileWidth:         64,
			TileHeight:        64,
		},
		Pipeline: PipelineConfig{
			Mode:          "auto",
			ToneMode:      "global",
			BandHeight:    32,
			OutputFormat:  "jpg",
			JPEGQuality:   92,
			MaxConcurrent: 4,
			QueueTimeout:  30,
		},
		Detector: DetectorConfig{
			Iterations:      5,
			MaxSize:         800,
			MinAreaRatio:    0.02,
			ApproxEpsilon:   0.02,
			FlatnessKernel:  15,
			MorphKernelSize: 5,
		},
	}
}
