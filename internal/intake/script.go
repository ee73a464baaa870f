package intake

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/support-bot/internal/domain"
)

// NoDescription is stored when the user never describes the issue.
const NoDescription = "No description provided."

// CategoryOption maps a menu reply to a ticket category.
type CategoryOption struct {
	Key   string          `yaml:"key"`
	Label domain.Category `yaml:"label"`
}

// Script holds every message the bot sends plus the category table.
//
// Templates may use {attempts}, {ticket}, {tickets} and {count}.
type Script struct {
	IntentMenu   string `yaml:"intent_menu"`
	IntentRetry  string `yaml:"intent_retry"`
	IntentFailed string `yaml:"intent_failed"`
	Cancelled    string `yaml:"cancelled"`
	Inactive     string `yaml:"inactive"`

	CategoryMenu       string `yaml:"category_menu"`
	CategoryRetry      string `yaml:"category_retry"`
	CategoryFailed     string `yaml:"category_failed"`
	DescriptionPrompt  string `yaml:"description_prompt"`
	DescriptionMissing string `yaml:"description_missing"`
	TicketCreated      string `yaml:"ticket_created"`
	TicketFailed       string `yaml:"ticket_failed"`

	LookupFailed      string `yaml:"lookup_failed"`
	NoOpenTickets     string `yaml:"no_open_tickets"`
	TicketList        string `yaml:"ticket_list"`
	SelectionRetry    string `yaml:"selection_retry"`
	SelectionFailed   string `yaml:"selection_failed"`
	SelectionAccepted string `yaml:"selection_accepted"`

	Categories []CategoryOption `yaml:"categories"`
}

// DefaultScript returns the stock IT support dialogue.
func DefaultScript() Script {
	return Script{
		IntentMenu: "Thanks for contacting IT Support! Could you please let us know what you need help with?\n" +
			" Reply 1️⃣ for a **new issue**\n" +
			" Reply 2️⃣ for an **update on an existing issue**\n" +
			" Reply 'exit' to cancel this request.",
		IntentRetry: "Invalid response. You have {attempts} attempts left. " +
			"Please reply '1' for a **new issue**, '2' for an **update**, or 'exit' to cancel.",
		IntentFailed: "We couldn't understand your response. Please restart the conversation if you still need assistance.",
		Cancelled:    "Your request has been canceled. Let us know if you need anything else.",
		Inactive:     "We haven't received a response. Exiting chat...",

		CategoryMenu: "We apologize for any inconvenience caused. " +
			"Before going further, could you please tell us what kind of problem you are facing?\n" +
			"Please reply:\n" +
			"1️⃣ for **HARDWARE** Issues\n" +
			"2️⃣ for **NETWORK** Issues\n" +
			"3️⃣ for **ACCOUNT/PASSWORD** Issues\n" +
			"4️⃣ for **SOFTWARE** Issues\n" +
			"5️⃣ for **OTHERS**\n" +
			"or Type 'exit' to cancel this request.",
		CategoryRetry: "Invalid response. You have {attempts} attempts left. " +
			"Please reply with '1' for **Hardware Issues**, '2' for **Network Issues**, " +
			"'3' for **Account/Password Issues**, '4' for **Software Issues**, '5' for **Others** or 'exit' to cancel.",
		CategoryFailed:     "Sorry, we couldn't understand your response. Please restart the conversation if you need help.",
		DescriptionPrompt:  "Thank you! Could you please provide a brief description of the issue in one message?",
		DescriptionMissing: "It seems we didn't receive a description. Proceeding with ticket creation.",
		TicketCreated: "Thank you for providing the details.\n" +
			"A ticket has been created for you.\n" +
			"Your ticket number is {ticket}.\n" +
			"Please wait while we arrange for IT support to contact you.",
		TicketFailed: "Sorry, we encountered an error while creating your ticket. Please try again later. " +
			"Our IT support team has still been notified.",

		LookupFailed:  "Sorry, we are unable to retrieve your ticket details at the moment. Please try again later.",
		NoOpenTickets: "You currently have no unresolved tickets. Let us know if you need further assistance.",
		TicketList: "You currently have {count} unresolved ticket(s): {tickets}\n" +
			"Please reply with the ticket number you are referring to.\n" +
			"Example: #003\n" +
			"Reply 'exit' to cancel.",
		SelectionRetry: "The ticket number you provided is not found. Please try again ({attempts} attempts left).\n" +
			"Example: #003\n" +
			"Reply 'exit' to cancel.",
		SelectionFailed:   "You have exceeded the maximum number of attempts. Please start over if you need assistance.",
		SelectionAccepted: "Thank you! We are notifying IT support about your ticket {ticket}.",

		Categories: []CategoryOption{
			{Key: "1", Label: domain.CategoryHardware},
			{Key: "2", Label: domain.CategoryNetwork},
			{Key: "3", Label: domain.CategoryAccountPassword},
			{Key: "4", Label: domain.CategorySoftware},
			{Key: "5", Label: domain.CategoryOthers},
		},
	}
}

// LoadScript overlays the YAML file at path onto DefaultScript. Keys
// missing from the file keep their default text.
func LoadScript(path string) (Script, error) {
	script := DefaultScript()
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("read script: %w", err)
	}
	if err := yaml.Unmarshal(data, &script); err != nil {
		return Script{}, fmt.Errorf("parse script %s: %w", path, err)
	}
	if err := script.Validate(); err != nil {
		return Script{}, fmt.Errorf("script %s: %w", path, err)
	}
	return script, nil
}

// Validate checks that the category table is usable.
func (s Script) Validate() error {
	if len(s.Categories) == 0 {
		return errors.New("at least one category is required")
	}
	seen := make(map[string]struct{}, len(s.Categories))
	for i, opt := range s.Categories {
		key := normalize(opt.Key)
		if key == "" {
			return fmt.Errorf("category %d: empty key", i)
		}
		if key == exitWord {
			return fmt.Errorf("category %d: key %q is reserved", i, opt.Key)
		}
		if strings.TrimSpace(string(opt.Label)) == "" {
			return fmt.Errorf("category %d: empty label", i)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("category %d: duplicate key %q", i, opt.Key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Category maps a user reply to its category. Replies are compared after
// trimming and lower-casing.
func (s Script) Category(reply string) (domain.Category, bool) {
	key := normalize(reply)
	for _, opt := range s.Categories {
		if normalize(opt.Key) == key {
			return opt.Label, true
		}
	}
	return "", false
}

func withAttempts(tmpl string, attempts int) string {
	return strings.NewReplacer("{attempts}", strconv.Itoa(attempts)).Replace(tmpl)
}

func withTicket(tmpl, ref string) string {
	return strings.NewReplacer("{ticket}", ref).Replace(tmpl)
}

func withTicketList(tmpl string, refs []string) string {
	return strings.NewReplacer(
		"{count}", strconv.Itoa(len(refs)),
		"{tickets}", strings.Join(refs, ", "),
	).Replace(tmpl)
}
