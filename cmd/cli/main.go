package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
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
	case "domain":
		handleDomain(args)
	case "user":
		handleUser(args)
	case "snapshot":
		handleSnapshot(args)
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
		fmt.Println("Usage: mailseat auth <register|login|logout|who>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "register":
		registerAccount(args[1:])
	case "login":
		login(args[1:])
	case "logout":
		logout()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", subCmd)
	}
}

func handleDomain(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: mailseat domain <list|create|verify|set-seats|delete>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listDomains()
	case "create":
		createDomain(args[1:])
	case "verify":
		verifyDomain(args[1:])
	case "set-seats":
		setDomainSeats(args[1:])
	case "delete":
		deleteDomain(args[1:])
	default:
		fmt.Printf("unknown domain command: %s\n", subCmd)
	}
}

func handleUser(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: mailseat user <list|create|rename|delete>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listUsers(args[1:])
	case "create":
		createUser(args[1:])
	case "rename":
		renameUser(args[1:])
	case "delete":
		deleteUser(args[1:])
	default:
		fmt.Printf("unknown user command: %s\n", subCmd)
	}
}

func handleSnapshot(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: mailseat snapshot <now>")
		return
	}

	switch args[0] {
	case "now":
		snapshotNow()
	default:
		fmt.Printf("unknown snapshot command: %s\n", args[0])
	}
}

// Auth commands
func registerAccount(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "operator email")
	username := fs.String("username", "", "username")
	password := fs.String("password", "", "password")
	domainID := fs.Int64("domain", 0, "domain ID (optional)")
	role := fs.String("role", "", "role: admin, domain_admin, or member (optional)")

	fs.Parse(args)

	if *email == "" || *username == "" || *password == "" {
		fmt.Println("Error: email, username, and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{
		"email":    *email,
		"username": *username,
		"password": *password,
	}
	if *domainID != 0 {
		payload["domainId"] = *domainID
	}
	if *role != "" {
		payload["role"] = *role
	}

	result, status, err := post("/auth/register", payload)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 201 {
		fmt.Printf("✓ Account registered: %s\n", *email)
		if token, ok := result["token"].(string); ok {
			saveToken(token)
		}
	} else {
		fmt.Printf("✗ Registration failed: %v\n", result)
	}
}

func login(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "operator email")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	result, status, err := post("/auth/login", map[string]interface{}{
		"email":    *email,
		"password": *password,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 200 {
		if token, ok := result["token"].(string); ok {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s\n", *email)
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func logout() {
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

// Domain commands
func listDomains() {
	result, status, err := get("/domains")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status != 200 {
		fmt.Printf("✗ Failed: %v\n", result)
		return
	}

	domains, _ := result["domains"].([]interface{})
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tVERIFIED\tSEATS\tUSED")
	for _, it := range domains {
		d, _ := it.(map[string]interface{})
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", d["id"], d["name"], d["verified"], d["maxUsers"], d["userCount"])
	}
	w.Flush()
}

func createDomain(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "domain name, e.g. example.com")
	seats := fs.Int("seats", 0, "maximum number of user seats")

	fs.Parse(args)

	if *name == "" {
		fmt.Println("Error: name is required")
		fs.PrintDefaults()
		return
	}

	result, status, err := post("/domains", map[string]interface{}{
		"name":     *name,
		"maxUsers": *seats,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 201 {
		fmt.Printf("✓ Domain registered: %s (id %v)\n", *name, result["id"])
	} else {
		fmt.Printf("✗ Failed: %v\n", result)
	}
}

func verifyDomain(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: mailseat domain verify <domain-id>")
		return
	}
	result, status, err := post("/domains/"+args[0]+"/verify", nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 200 {
		fmt.Printf("✓ Domain verified: %v\n", result["name"])
	} else {
		fmt.Printf("✗ Failed: %v\n", result)
	}
}

func setDomainSeats(args []string) {
	fs := flag.NewFlagSet("set-seats", flag.ExitOnError)
	id := fs.String("id", "", "domain ID")
	seats := fs.Int("seats", -1, "new seat limit")

	fs.Parse(args)

	if *id == "" || *seats < 0 {
		fmt.Println("Error: id and seats are required")
		fs.PrintDefaults()
		return
	}

	result, status, err := patch("/domains/"+*id, map[string]interface{}{"maxUsers": *seats})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 200 {
		fmt.Printf("✓ Seat limit set to %d\n", *seats)
	} else {
		fmt.Printf("✗ Failed: %v\n", result)
	}
}

func deleteDomain(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: mailseat domain delete <domain-id>")
		return
	}
	result, status, err := del("/domains/" + args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 204 {
		fmt.Println("✓ Domain deleted")
	} else {
		fmt.Printf("✗ Failed: %v\n", result)
	}
}

// User commands
func listUsers(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: mailseat user list <domain-id>")
		return
	}
	result, status, err := get("/domains/" + args[0] + "/users")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status != 200 {
		fmt.Printf("✗ Failed: %v\n", result)
		return
	}

	users, _ := result["users"].([]interface{})
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tADDRESS\tACTIVE\tCREATED")
	for _, it := range users {
		u, _ := it.(map[string]interface{})
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", u["id"], u["username"], u["address"], u["active"], u["createdAt"])
	}
	w.Flush()
}

func createUser(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	domainID := fs.String("domain", "", "domain ID")
	username := fs.String("username", "", "username (local part)")
	displayName := fs.String("display-name", "", "display name (optional)")

	fs.Parse(args)

	if *domainID == "" || *username == "" {
		fmt.Println("Error: domain and username are required")
		fs.PrintDefaults()
		return
	}

	result, status, err := post("/domains/"+*domainID+"/users", map[string]interface{}{
		"username":    *username,
		"displayName": *displayName,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 201 {
		fmt.Printf("✓ User created: %v (id %v)\n", result["address"], result["id"])
	} else {
		fmt.Printf("✗ Failed: %v\n", result)
	}
}

func renameUser(args []string) {
	fs := flag.NewFlagSet("rename", flag.ExitOnError)
	id := fs.String("id", "", "user ID")
	username := fs.String("username", "", "new username")

	fs.Parse(args)

	if *id == "" || *username == "" {
		fmt.Println("Error: id and username are required")
		fs.PrintDefaults()
		return
	}

	result, status, err := post("/users/"+*id+"/rename", map[string]interface{}{"username": *username})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 200 {
		fmt.Printf("✓ User renamed: %v\n", result["address"])
	} else {
		fmt.Printf("✗ Failed: %v\n", result)
	}
}

func deleteUser(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: mailseat user delete <user-id>")
		return
	}
	result, status, err := del("/users/" + args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 204 {
		fmt.Println("✓ User deleted")
	} else {
		fmt.Printf("✗ Failed: %v\n", result)
	}
}

// Snapshot commands
func snapshotNow() {
	result, status, err := post("/admin/snapshot", nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 202 {
		fmt.Println("✓ Snapshot taken")
	} else {
		fmt.Printf("✗ Failed: %v\n", result)
	}
}

// HTTP helpers
func get(path string) (map[string]interface{}, int, error) {
	return do("GET", path, nil)
}

func post(path string, payload interface{}) (map[string]interface{}, int, error) {
	return do("POST", path, payload)
}

func patch(path string, payload interface{}) (map[string]interface{}, int, error) {
	return do("PATCH", path, payload)
}

func del(path string) (map[string]interface{}, int, error) {
	return do("DELETE", path, nil)
}

func do(method, path string, payload interface{}) (map[string]interface{}, int, error) {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, err
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, getAPIURL()+path, body)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	return result, resp.StatusCode, nil
}

func getAPIURL() string {
	if url := os.Getenv("MAILSEAT_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.mailseat/token"
}

func saveToken(token string) error {
	os.MkdirAll(os.Getenv("HOME")+"/.mailseat", 0700)
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
	fmt.Print(`MailSeat CLI

Usage:
  mailseat <command> [options]

Commands:
  auth      Operator authentication (register, login, logout, who)
  domain    Domain operations (list, create, verify, set-seats, delete)
  user      Directory user operations (list, create, rename, delete)
  snapshot  Trigger an immediate directory snapshot (admin only)
  help      Show this help message

Environment Variables:
  MAILSEAT_API    API endpoint (default: http://localhost:8080/api)

Examples:
  mailseat auth register -email ops@example.com -username ops -password pass -role admin
  mailseat domain create -name example.com -seats 25
  mailseat domain verify 1
  mailseat user create -domain 1 -username alice
  mailseat user list 1
`)
}
