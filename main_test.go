package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"houseprice/form"
)

func TestPredictFlagsCoverForm(t *testing.T) {
	fields := map[string]bool{form.Town: true, form.Type: true}
	for name := range form.Defaults() {
		fields[name] = true
	}
	for _, f := range predictFlags {
		assert.True(t, fields[f.field], "unknown field %s", f.field)
		delete(fields, f.field)
		assert.NotNil(t, predictCmd.Flags().Lookup(f.flag), f.flag)
	}
	assert.Empty(t, fields)
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"serve", "predict", "fetch"} {
		cmd, _, err := rootCmd.Find([]string{name})
		assert.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestFetchDescribesExistingFileRule(t *testing.T) {
	assert.Equal(t, "Download the model artifact if it is missing", fetchCmd.Short)
}
