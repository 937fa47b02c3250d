package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "users":
		handleUsers(args)
	case "workflows":
		handleWorkflows(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: flowhub auth <login|logout|who>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "login":
		loginUser(args[1:])
	case "logout":
		logoutUser()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", subCmd)
	}
}

func handleUsers(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: flowhub users <list|invite|role>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listUsers(args[1:])
	case "invite":
		inviteUsers(args[1:])
	case "role":
		changeRole(args[1:])
	default:
		fmt.Printf("unknown users command: %s\n", subCmd)
	}
}

func handleWorkflows(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: flowhub workflows <list>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listWorkflows(args[1:])
	default:
		fmt.Printf("unknown workflows command: %s\n", subCmd)
	}
}

// Auth commands
func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"email": *email, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/login", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		if token, ok := result["token"].(string); ok {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s\n", *email)
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func logoutUser() {
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	token := loadToken()
	if token == "" {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("✓ Logged in (token: %s...)\n", token[:20])
}

// User commands
func listUsers(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	withScopes := fs.Bool("scopes", false, "include role scopes")

	fs.Parse(args)

	url := getAPIURL() + "/users"
	if *withScopes {
		url += "?includeScopes=true"
	}

	req, _ := http.NewRequest("GET", url, nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var users []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&users)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tROLE\tPENDING")
	for _, u := range users {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", u["id"], u["email"], u["role"], u["isPending"])
	}
	w.Flush()
}

func inviteUsers(args []string) {
	fs := flag.NewFlagSet("invite", flag.ExitOnError)
	emails := fs.String("emails", "", "comma-separated emails to invite")
	role := fs.String("role", "global:member", "role for the invited users")

	fs.Parse(args)

	if *emails == "" {
		fmt.Println("Error: emails are required")
		fs.PrintDefaults()
		return
	}

	var invitations []map[string]string
	for _, email := range strings.Split(*emails, ",") {
		email = strings.TrimSpace(email)
		if email != "" {
			invitations = append(invitations, map[string]string{"email": email, "role": *role})
		}
	}

	data, _ := json.Marshal(invitations)
	req, _ := http.NewRequest("POST", getAPIURL()+"/users/invite", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		created, _ := result["usersCreated"].([]interface{})
		fmt.Printf("✓ Created %d new users out of %d invitations\n", len(created), len(invitations))
	} else {
		fmt.Printf("✗ Invite failed: %v\n", result)
	}
}

func changeRole(args []string) {
	fs := flag.NewFlagSet("role", flag.ExitOnError)
	userID := fs.String("user", "", "target user id")
	role := fs.String("role", "", "new role (global:admin or global:member)")

	fs.Parse(args)

	if *userID == "" || *role == "" {
		fmt.Println("Error: user and role are required")
		fs.PrintDefaults()
		return
	}

	data, _ := json.Marshal(map[string]string{"newRoleName": *role})
	req, _ := http.NewRequest("PATCH", getAPIURL()+"/users/"+*userID+"/role", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 200 {
		fmt.Printf("✓ Role updated: %s -> %s\n", *userID, *role)
	} else {
		var result map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&result)
		fmt.Printf("✗ Role change failed: %v\n", result)
	}
}

// Workflow commands
func listWorkflows(args []string) {
	_ = args
	req, _ := http.NewRequest("GET", getAPIURL()+"/workflows", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var workflows []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&workflows)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCREATED")
	for _, wf := range workflows {
		fmt.Fprintf(w, "%v\t%v\t%v\n", wf["id"], wf["name"], wf["created_at"])
	}
	w.Flush()
}

// Helper functions
func getAPIURL() string {
	if url := os.Getenv("FLOWHUB_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.flowhub/token"
}

func saveToken(token string) error {
	os.MkdirAll(os.Getenv("HOME")+"/.flowhub", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`FlowHub CLI

Usage:
  flowhub <command> [options]

Commands:
  auth       Authentication (login, logout, who)
  users      User directory (list, invite, role) - owner or admin required
  workflows  Workflow operations (list)
  help       Show this help message

Environment Variables:
  FLOWHUB_API    API endpoint (default: http://localhost:8080/api)

Examples:
  flowhub auth login -email admin@example.com -password pass
  flowhub users list -scopes
  flowhub users invite -emails a@example.com,b@example.com -role global:member
  flowhub workflows list
`)
}
