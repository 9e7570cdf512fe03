package testgen

// Categories is the fixed category list. Generate issues one completion call
// per entry and concatenates results in this order.
var Categories = []string{
	"Basic Test Cases",
	"Edge Case Test Cases",
	"Boundary Value Test Cases",
	"Negative Test Cases",
	"Large Input Test Cases",
	"Special Character Test Cases",
	"Null/Empty Input Test Cases",
	"Duplicate Input Test Cases",
	"Performance & Stress Test Cases",
	"Security Test Cases",
	"Dependency-Based Test Cases",
	"Randomized Test Cases",
	"Multi-Threading Test Cases",
	"Compatibility Test Cases",
	"UI/UX Test Cases",
	"API Test Cases",
	"Database Test Cases",
	"Regression Test Cases",
	"Integration Test Cases",
	"Unit Test Cases",
	"System Test Cases",
	"End-to-End (E2E) Test Cases",
	"Acceptance Test Cases",
	"Localization & Internationalization Test Cases",
	"Usability Test Cases",
}
