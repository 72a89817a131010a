package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/dyike/FinSim/internal/agents/preference"
	"github.com/dyike/FinSim/models"
	"github.com/dyike/FinSim/pkg/numeric"
)

func promptUsername() (string, error) {
	var username string
	prompt := &survey.Input{
		Message: "Username:",
		Help:    "Set --user or FINSIM_USER to skip this prompt",
	}
	err := survey.AskOne(prompt, &username, survey.WithValidator(survey.Required))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(username), nil
}

func promptPassword() (string, error) {
	var password string
	prompt := &survey.Password{
		Message: "Password:",
		Help:    "Set --password or FINSIM_PASSWORD to skip this prompt",
	}
	if err := survey.AskOne(prompt, &password, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}
	return password, nil
}

// PromptForPreferenceText asks for a free-text description of the
// investor.
func PromptForPreferenceText() (string, error) {
	var text string
	prompt := &survey.Multiline{
		Message: "Describe your investment preferences:",
		Help:    "e.g. I am 30, want growth over 10 years and can invest $5000. Moderate risk is fine.",
	}
	err := survey.AskOne(prompt, &text, survey.WithValidator(func(val interface{}) error {
		if strings.TrimSpace(val.(string)) == "" {
			return fmt.Errorf("preferences cannot be empty")
		}
		return nil
	}))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// PromptForPreferenceForm collects the structured preference form, starting
// from current.
func PromptForPreferenceForm(current models.InvestmentProfile) (preference.Form, error) {
	answers := struct {
		Risk       string
		Goals      string
		Horizon    string
		Amount     string
		Style      string
		Additional string
	}{}

	questions := []*survey.Question{
		{
			Name: "risk",
			Prompt: &survey.Select{
				Message: "Risk appetite:",
				Options: models.RiskAppetites,
				Default: selectDefault(models.RiskAppetites, current.RiskAppetite),
			},
		},
		{
			Name: "goals",
			Prompt: &survey.Select{
				Message: "Investment goal:",
				Options: models.InvestmentGoals,
				Default: selectDefault(models.InvestmentGoals, current.InvestmentGoals),
			},
		},
		{
			Name: "horizon",
			Prompt: &survey.Select{
				Message: "Time horizon:",
				Options: models.TimeHorizons,
				Default: selectDefault(models.TimeHorizons, current.TimeHorizon),
			},
		},
		{
			Name: "amount",
			Prompt: &survey.Input{
				Message: "Investment amount (USD):",
				Default: fmt.Sprintf("%.2f", current.InvestmentAmount),
			},
			Validate: func(val interface{}) error {
				if v, ok := numeric.Parse(val.(string)); !ok || v <= 0 {
					return fmt.Errorf("amount must be a positive number")
				}
				return nil
			},
		},
		{
			Name: "style",
			Prompt: &survey.Select{
				Message: "Investment style:",
				Options: models.InvestmentStyles,
				Default: selectDefault(models.InvestmentStyles, current.InvestmentStyle),
			},
		},
		{
			Name: "additional",
			Prompt: &survey.Input{
				Message: "Anything else? (sectors to favour or avoid)",
				Default: current.AdditionalPreferences,
			},
		},
	}

	if err := survey.Ask(questions, &answers); err != nil {
		return preference.Form{}, err
	}
	return preference.Form{
		RiskAppetite:          answers.Risk,
		InvestmentGoals:       answers.Goals,
		TimeHorizon:           answers.Horizon,
		InvestmentAmount:      answers.Amount,
		InvestmentStyle:       answers.Style,
		AdditionalPreferences: answers.Additional,
	}, nil
}

// selectDefault returns v when it is one of options, nil otherwise, since a
// Select rejects a default it cannot show.
func selectDefault(options []string, v string) interface{} {
	for _, o := range options {
		if o == v {
			return v
		}
	}
	return nil
}

// PromptForConfirmation asks a yes/no question defaulting to no.
func PromptForConfirmation(message string) (bool, error) {
	var confirmed bool
	prompt := &survey.Confirm{
		Message: message,
		Default: false,
	}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}
