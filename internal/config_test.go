package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults_And_Dotenv(t *testing.T) {
	req := require.New(t)
	file := filepath.Join(t.TempDir(), ".env")
	req.NoError(os.WriteFile(file, []byte("JWT_SECRET=from-file\nSINK_TIMEOUT=3s\nALLOWED_ORIGINS=http://a.test, http://b.test\n"), 0o600))
	t.Setenv("PORT", "9000")
	t.Cleanup(func() {
		for _, key := range []string{"JWT_SECRET", "SINK_TIMEOUT", "ALLOWED_ORIGINS"} {
			_ = os.Unsetenv(key)
		}
	})

	config, err := LoadConfig(file)
	req.NoError(err)
	req.Equal("from-file", config.JwtSecret)
	req.Equal(3*time.Second, config.SinkTimeout)
	req.Equal(9000, config.Port)
	req.Equal(5*time.Minute, config.AccessTokenDuration)
	req.Nil(config.LimitMessages)
	req.Equal([]string{"http://a.test", "http://b.test"}, config.Origins())
	req.Empty(config.Words())
}

func TestLoadConfig_Missing_Dotenv_Is_Fine(t *testing.T) {
	req := require.New(t)
	t.Setenv("JWT_SECRET", "secret")

	config, err := LoadConfig(filepath.Join(t.TempDir(), "absent.env"))
	req.NoError(err)
	req.Equal("secret", config.JwtSecret)
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)
	r, err := Config{CharReplacement: "€"}.CharacterRune()
	req.NoError(err)
	req.Equal('€', r)

	_, err = Config{CharReplacement: "**"}.CharacterRune()
	req.Error(err)
}
