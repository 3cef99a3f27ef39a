package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/example/plea-submit/internal/util"
)

// DefaultBaseURL is the production plea service.
const DefaultBaseURL = "https://www.securityeb.com/ktfsr"

// Default User-Agent strings, matching the WeChat in-app browser the service
// expects for each call.
const (
	DefaultUserAgentAddPlea = "Mozilla/5.0 (iPhone; CPU iPhone OS 6_1_3 like Mac OS X) " +
		"AppleWebKit/536.26 (KHTML, like Gecko) Mobile/10B329 MicroMessenger/5.0.1"
	DefaultUserAgentUpload = "Mozilla/5.0 (iPhone; CPU iPhone OS 19_0 like Mac OS X) AppleWebKit/605.1.15 " +
		"(KHTML, like Gecko) Mobile/15E148 MicroMessenger/8.0.54(0x1800363a) NetType/WIFI Language/zh_CN"
)

// Config captures all runtime configuration for a plea submission run.
type Config struct {
	App          AppConfig
	Service      ServiceConfig
	Submission   SubmissionConfig
	Provider     string
	MockScenario string
	PreCheck     bool
}

// AppConfig contains generic application level settings.
type AppConfig struct {
	Env      string
	LogLevel string
}

// ServiceConfig describes how to reach the plea service.
type ServiceConfig struct {
	BaseURL          string
	UserAgentAddPlea string
	UserAgentUpload  string
	AddPleaTimeout   time.Duration
	UploadTimeout    time.Duration
	PreCheckTimeout  time.Duration
}

// SubmissionConfig holds the complaint fields. Field-level checks are left to
// the validator so the user sees its ordered messages.
type SubmissionConfig struct {
	OpenID         string
	ComplaintPhone string
	UserPhone      string
	CompanyID      string
	CompanyName    string
	PleaReason     string
	FilePath       string
}

// DefaultServiceConfig returns the production endpoint and call timeouts.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		BaseURL:          DefaultBaseURL,
		UserAgentAddPlea: DefaultUserAgentAddPlea,
		UserAgentUpload:  DefaultUserAgentUpload,
		AddPleaTimeout:   20 * time.Second,
		UploadTimeout:    30 * time.Second,
		PreCheckTimeout:  20 * time.Second,
	}
}

// flagSpec maps a command line flag onto the environment variable it
// overrides.
type flagSpec struct {
	name    string
	env     string
	usage   string
	boolean bool
}

var flagSpecs = []flagSpec{
	{"openid", "OPENID", "identity token of the submitting account", false},
	{"complaint-phone", "COMPLAINT_PHONE", "phone number the complaint is about", false},
	{"user-phone", "USER_PHONE", "submitter's own registered phone number", false},
	{"company-id", "COMPANY_ID", "organization registration id", false},
	{"company-name", "COMPANY_NAME", "organization name", false},
	{"plea-reason", "PLEA_REASON", "complaint reason", false},
	{"file", "FILE", "path to the business license image (JPEG or PNG)", false},
	{"base", "BASE_URL", "plea service base URL", false},
	{"ua-add-plea", "UA_ADD_PLEA", "User-Agent for the metadata call", false},
	{"ua-upload", "UA_UPLOAD", "User-Agent for the upload call", false},
	{"provider", "PLEA_PROVIDER", "backend: http or mock", false},
	{"mock-scenario", "MOCK_SCENARIO", "mock backend scenario: success, reject, upload_fail, timeout or not_flagged", false},
	{"precheck", "PRECHECK", "query whether the number is flagged before submitting", true},
	{"log-level", "LOG_LEVEL", "log level", false},
}

// Load reads .env, environment variables and command line flags (flags win),
// applies defaults, validates required values and returns a populated Config.
func Load(args []string) (*Config, error) {
	return load(args, os.Stderr)
}

func load(args []string, usageOut io.Writer) (*Config, error) {
	_ = godotenv.Load()

	overrides, err := parseFlags(args, usageOut)
	if err != nil {
		return nil, err
	}
	ldr := &envLoader{overrides: overrides}

	cfg := &Config{}
	cfg.App.Env = ldr.getString("APP_ENV", "development", false)
	cfg.App.LogLevel = ldr.getString("LOG_LEVEL", "info", false)

	defaults := DefaultServiceConfig()
	baseURL := ldr.getString("BASE_URL", defaults.BaseURL, false)
	if normalized, err := util.ValidateHTTPURL(baseURL); err != nil {
		ldr.addError(fmt.Sprintf("BASE_URL: %v", err))
	} else {
		cfg.Service.BaseURL = normalized
	}
	cfg.Service.UserAgentAddPlea = ldr.getString("UA_ADD_PLEA", defaults.UserAgentAddPlea, false)
	cfg.Service.UserAgentUpload = ldr.getString("UA_UPLOAD", defaults.UserAgentUpload, false)
	cfg.Service.AddPleaTimeout = ldr.getSeconds("ADD_PLEA_TIMEOUT_SECONDS", defaults.AddPleaTimeout)
	cfg.Service.UploadTimeout = ldr.getSeconds("UPLOAD_TIMEOUT_SECONDS", defaults.UploadTimeout)
	cfg.Service.PreCheckTimeout = ldr.getSeconds("PRECHECK_TIMEOUT_SECONDS", defaults.PreCheckTimeout)
	if cfg.Service.UploadTimeout < cfg.Service.AddPleaTimeout {
		ldr.addError("UPLOAD_TIMEOUT_SECONDS must not be shorter than ADD_PLEA_TIMEOUT_SECONDS")
	}

	cfg.Provider = strings.ToLower(ldr.getString("PLEA_PROVIDER", "http", false))
	switch cfg.Provider {
	case "http", "mock":
	default:
		ldr.addError(fmt.Sprintf("PLEA_PROVIDER must be http or mock, got %q", cfg.Provider))
	}
	cfg.MockScenario = strings.ToLower(ldr.getString("MOCK_SCENARIO", "success", false))
	cfg.PreCheck = ldr.getBool("PRECHECK", false, false)

	cfg.Submission.OpenID = ldr.getString("OPENID", "", true)
	cfg.Submission.UserPhone = ldr.getString("USER_PHONE", "", true)
	cfg.Submission.ComplaintPhone = ldr.getString("COMPLAINT_PHONE", "", false)
	cfg.Submission.CompanyID = ldr.getString("COMPANY_ID", "", false)
	cfg.Submission.CompanyName = ldr.getString("COMPANY_NAME", "", false)
	cfg.Submission.PleaReason = ldr.getString("PLEA_REASON", "", false)
	cfg.Submission.FilePath = ldr.getString("FILE", "", false)

	if err := ldr.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseFlags(args []string, usageOut io.Writer) (map[string]string, error) {
	fs := pflag.NewFlagSet("plea-submit", pflag.ContinueOnError)
	fs.SetOutput(usageOut)

	envByFlag := make(map[string]string, len(flagSpecs))
	for _, spec := range flagSpecs {
		usage := fmt.Sprintf("%s (env %s)", spec.usage, spec.env)
		if spec.boolean {
			fs.Bool(spec.name, false, usage)
		} else {
			fs.String(spec.name, "", usage)
		}
		envByFlag[spec.name] = spec.env
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("config: unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	overrides := make(map[string]string)
	fs.Visit(func(f *pflag.Flag) {
		overrides[envByFlag[f.Name]] = f.Value.String()
	})
	return overrides, nil
}

type envLoader struct {
	overrides map[string]string
	errs      []string
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(l.errs, "; "))
}

func (l *envLoader) lookup(key string) (string, bool) {
	if val, ok := l.overrides[key]; ok {
		return val, true
	}
	return os.LookupEnv(key)
}

func (l *envLoader) getString(key, def string, required bool) string {
	if val, ok := l.lookup(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		return val
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getSeconds(key string, def time.Duration) time.Duration {
	val, ok := l.lookup(key)
	if !ok || strings.TrimSpace(val) == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid integer", key))
		return def
	}
	if n <= 0 {
		l.addError(fmt.Sprintf("%s must be positive", key))
		return def
	}
	return time.Duration(n) * time.Second
}

func (l *envLoader) getBool(key string, def bool, required bool) bool {
	if val, ok := l.lookup(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			l.addError(fmt.Sprintf("%s must be a valid boolean", key))
			return def
		}
		return parsed
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) addError(err string) {
	l.errs = append(l.errs, err)
}

// IsHelp reports whether err came from a help request.
func IsHelp(err error) bool {
	return errors.Is(err, pflag.ErrHelp)
}
