package tui

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chunkdl/internal/config"
)

func TestApplyTheme_LightAndDarkDiverge(t *testing.T) {
	ApplyTheme(config.ThemeDark)
	darkText, darkPrimary := ColorText, ColorPrimary

	ApplyTheme(config.ThemeLight)
	lightText, lightPrimary := ColorText, ColorPrimary

	require.NotEqual(t, darkText, lightText)
	require.NotEqual(t, darkPrimary, lightPrimary)
	require.Equal(t, lightPrimary, TitleStyle.GetForeground())
}
