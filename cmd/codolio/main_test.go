package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	codolio "github.com/RavensCloud/codolio-gofun"
)

func TestPrintProfile(t *testing.T) {
	p, err := codolio.Extract(`<body>
		<div class="MuiCard-root"><span>Total Questions</span><span>500</span></div>
		<div class="MuiCard-root"><h3>DSA Topic Analysis</h3><div>Arrays 12</div><div>Graphs 3</div></div>
		<div data-date="2024-03-05" data-count="4"></div>
		<div data-date="2024-03-06" data-count="0"></div>
	</body>`)
	require.NoError(t, err)

	var buf bytes.Buffer
	printProfile(&buf, "SambhavSurthi", p)
	out := buf.String()

	assert.Contains(t, out, "User: SambhavSurthi")
	assert.Contains(t, out, "total_questions    500")
	assert.Contains(t, out, "leetcode     0")
	assert.Contains(t, out, "Heatmap: 2 days, 1 active, 4 submissions")
	assert.Contains(t, out, "Arrays")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Arrays")), bytes.Index(buf.Bytes(), []byte("Graphs")))
}

func TestRootCommand_Flags(t *testing.T) {
	cmd := newRootCommand()

	for _, name := range []string{"config", "log-level", "log-format"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["fetch"])
}

func TestFetchCommand_RequiresUsername(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"fetch"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestInit_FlagsOverrideConfig(t *testing.T) {
	t.Setenv("CODOLIO_LOG_FORMAT", "json")
	a := &app{logFormat: "console"}
	require.NoError(t, a.init())
	assert.Equal(t, "console", a.cfg.Log.Format)
	assert.NotNil(t, a.logger)
}
