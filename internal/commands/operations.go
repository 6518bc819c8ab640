package commands

import (
	"fmt"
	"strings"
)

// Actions understood by the dispatcher
const (
	ActionCreateUser     = "create_user"
	ActionDeleteUser     = "delete_user"
	ActionGetAllUsers    = "get_all_users"
	ActionGetAddedUser   = "get_added_user"
	ActionCalcAverageAge = "calc_average_age"
)

// Operation describes one action offered to the language model
type Operation struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	RequiredFields []string `json:"required_fields"`
}

var operations = []Operation{
	{Name: ActionCreateUser, Description: "Create a user", RequiredFields: []string{"name", "age"}},
	{Name: ActionDeleteUser, Description: "Delete a user", RequiredFields: []string{"name", "age"}},
	{Name: ActionGetAllUsers, Description: "List all users", RequiredFields: []string{}},
	{Name: ActionGetAddedUser, Description: "List the users added since startup", RequiredFields: []string{}},
	{Name: ActionCalcAverageAge, Description: "Average user age grouped by the first letter of the name", RequiredFields: []string{}},
}

// Operations returns the manifest of available actions
func Operations() []Operation {
	out := make([]Operation, len(operations))
	copy(out, operations)
	return out
}

// LookupOperation finds the manifest entry for action
func LookupOperation(action string) (Operation, bool) {
	for _, op := range operations {
		if op.Name == action {
			return op, true
		}
	}
	return Operation{}, false
}

// SystemPrompt builds the instructions handed to the language model
func SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a command parser that turns a user's spoken command into a concrete operation.\n")
	b.WriteString("Available operations:\n")
	for i, op := range operations {
		fields := "no parameters"
		if len(op.RequiredFields) > 0 {
			fields = "requires " + strings.Join(op.RequiredFields, ", ")
		}
		fmt.Fprintf(&b, "%d. %s (%s) - %s\n", i+1, op.Description, op.Name, fields)
	}
	b.WriteString("\nReply with JSON only, for example:\n")
	b.WriteString(`{"action": "create_user", "data": {"name": "John", "age": 25}}`)
	b.WriteString("\nUse an empty object for data when the operation needs no parameters.")
	return b.String()
}

// userPrompt wraps the transcribed text for the language model
func userPrompt(text string) string {
	return "Parse the following command and return the operation as JSON: " + text
}
