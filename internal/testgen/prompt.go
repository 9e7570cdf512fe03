package testgen

import "fmt"

// BuildPrompt renders the per-category request. The example object names the
// four fields the fragment scanner looks for.
func BuildPrompt(code, languageID, category string, maxTests int) string {
	if languageID == "" {
		languageID = "plaintext"
	}
	if maxTests <= 0 {
		maxTests = 3
	}
	return fmt.Sprintf(`
Generate test cases for the following %s code, focusing on %s:

%s

Please provide test cases in the following format:
{
    "title": "Brief description of the test case",
    "input": "Test input values",
    "expectedOutput": "Expected output or behavior",
    "code": "Complete test code that can be executed"
}

Generate up to %d test cases for this category.`, languageID, category, code, maxTests)
}
