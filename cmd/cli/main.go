package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jsondb/JsonDB"
	"github.com/jsondb/JsonDB/core"
	"github.com/jsondb/JsonDB/db"
	"github.com/jsondb/JsonDB/ps"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

// CLI holds the CLI state
type CLI struct {
	store       *db.Store
	history     []string
	historyFile string
}

func main() {
	file := flag.String("file", "", "Path to the backing JSON file (memory if empty)")
	versioned := flag.Bool("versioned", false, "Keep a transaction history for the backing file")
	script := flag.String("script", "", "Command file to execute (non-interactive)")
	userName := flag.String("name", "JsonDB", "Author name recorded on transactions")
	userEmail := flag.String("email", "cli@jsondb.local", "Author email recorded on transactions")
	flag.Parse()

	printBanner()

	var persistence ps.Persistence
	var err error
	switch {
	case *file == "":
		fmt.Printf("%sUsing memory persistence%s\n", SuccessColor, ResetColor)
		persistence, err = ps.NewMemoryPersistence()
	case *versioned:
		fmt.Printf("%sUsing versioned file persistence: %s%s\n", SuccessColor, *file, ResetColor)
		persistence, err = ps.NewVersionedPersistence(*file)
	default:
		fmt.Printf("%sUsing file persistence: %s%s\n", SuccessColor, *file, ResetColor)
		persistence, err = ps.NewFilePersistence(*file)
	}
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		return
	}

	instance := JsonDB.Open(&persistence)
	store := instance.Store(core.Identity{
		Name:  *userName,
		Email: *userEmail,
	})

	cli := &CLI{
		store:       store,
		history:     make([]string, 0),
		historyFile: getHistoryPath(),
	}

	cli.loadHistory()

	if *script != "" {
		if err := cli.runScript(*script); err != nil {
			fmt.Printf("%sError running script: %v%s\n", ErrorColor, err, ResetColor)
			os.Exit(1)
		}
		return
	}

	cli.run()
}

func printBanner() {
	fmt.Println()
	bannerWidth := 39 // inner width of the banner box
	versionLine := fmt.Sprintf("JsonDB v%s", Version)
	padding := bannerWidth - len(versionLine) - 2 // -2 for "  " margins
	if padding < 0 {
		padding = 0
	}
	leftPad := padding / 2
	rightPad := padding - leftPad

	fmt.Printf("%s%s╔═══════════════════════════════════════╗%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s║ %*s%s%*s ║%s\n", BoldColor, PromptColor, leftPad, "", versionLine, rightPad, "", ResetColor)
	fmt.Printf("%s%s║   File-backed JSON Document Store     ║%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s╚═══════════════════════════════════════╝%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println()
	fmt.Println("Type .help for commands, .quit to exit")
	fmt.Println()
}

func (cli *CLI) run() {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Printf("%sjsondb>%s ", PromptColor, ResetColor)

		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Printf("\n%sGoodbye!%s\n", SuccessColor, ResetColor)
			cli.saveHistory()
			return
		}

		input = strings.TrimSuffix(input, "\n")
		input = strings.TrimSuffix(input, "\r")

		if strings.TrimSpace(input) == "" {
			continue
		}

		if strings.HasPrefix(strings.TrimSpace(input), ".") {
			cli.handleCommand(input)
			continue
		}

		cli.addToHistory(input)
		cli.execute(input)
	}
}

func (cli *CLI) handleCommand(input string) {
	cmd := strings.ToLower(strings.TrimSpace(input))
	parts := strings.Fields(cmd)

	if len(parts) == 0 {
		return
	}

	switch parts[0] {
	case ".quit", ".exit", ".q":
		fmt.Printf("%sGoodbye!%s\n", SuccessColor, ResetColor)
		cli.saveHistory()
		os.Exit(0)

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".tables":
		cli.execute("tables")

	case ".info":
		if len(parts) > 1 {
			cli.execute("info " + parts[1])
		} else {
			fmt.Printf("%s✗ Usage: .info <table>%s\n", ErrorColor, ResetColor)
		}

	case ".clear", ".cls":
		fmt.Print("\033[H\033[2J")

	case ".history":
		cli.printHistory()

	case ".version":
		fmt.Printf("JsonDB version %s\n", Version)

	default:
		fmt.Printf("%s✗ Unknown command: %s (type .help for commands)%s\n", ErrorColor, parts[0], ResetColor)
	}
}

// execute parses one command line and runs it against the store.
func (cli *CLI) execute(line string) {
	op, rest := splitWord(line)

	switch strings.ToLower(op) {
	case "tables":
		tables := cli.store.ListTables()
		if len(tables) == 0 {
			fmt.Println("No tables")
			return
		}
		for _, name := range tables {
			fmt.Printf("  %s\n", name)
		}

	case "get":
		if rest == "" {
			cli.printRecord(cli.store.Database())
			return
		}
		table, _ := splitWord(rest)
		data, exists := cli.store.GetData(table)
		if !exists {
			cli.fail()
			return
		}
		cli.printRecord(data)

	case "exists":
		table, _ := splitWord(rest)
		fmt.Printf("%v\n", cli.store.TableExists(table))

	case "info":
		table, _ := splitWord(rest)
		cli.printRecord(cli.store.GetTableInfo(table))

	case "create":
		table, payload := splitWord(rest)
		if table == "" {
			fmt.Printf("%s✗ Usage: create <table> [<json>]%s\n", ErrorColor, ResetColor)
			return
		}
		var initial core.Record
		if payload != "" {
			value, err := core.DecodeValue([]byte(payload))
			if err != nil {
				fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
				return
			}
			initial = value
		}
		cli.report(cli.store.CreateTable(table, initial))

	case "insert":
		table, payload := splitWord(rest)
		if table == "" || payload == "" {
			fmt.Printf("%s✗ Usage: insert <table> <json>%s\n", ErrorColor, ResetColor)
			return
		}
		value, err := core.DecodeValue([]byte(payload))
		if err != nil {
			fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
			return
		}
		cli.report(cli.store.InsertData(table, value))

	case "update":
		table, payload := splitWord(rest)
		if table == "" || payload == "" {
			fmt.Printf("%s✗ Usage: update <table> <json> [where <match>]%s\n", ErrorColor, ResetColor)
			return
		}
		valueText, whereText := splitWhere(payload)
		value, err := core.DecodeValue([]byte(valueText))
		if err != nil {
			fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
			return
		}
		condition, err := parseMatcher(whereText)
		if err != nil {
			fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
			return
		}
		cli.report(cli.store.UpdateData(table, condition, value))

	case "delete":
		table, payload := splitWord(rest)
		if table == "" {
			fmt.Printf("%s✗ Usage: delete <table> (all | where <match>)%s\n", ErrorColor, ResetColor)
			return
		}
		trimmed := strings.TrimSpace(payload)
		if strings.EqualFold(trimmed, "all") {
			cli.report(cli.store.DeleteData(table, nil, true))
			return
		}
		if !strings.HasPrefix(strings.ToLower(trimmed), "where ") {
			fmt.Printf("%s✗ Usage: delete <table> (all | where <match>)%s\n", ErrorColor, ResetColor)
			return
		}
		condition, err := parseMatcher(trimmed[len("where "):])
		if err != nil {
			fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
			return
		}
		cli.report(cli.store.DeleteData(table, condition, false))

	case "history":
		transactions := cli.store.History()
		if len(transactions) == 0 {
			fmt.Println("No transactions")
			return
		}
		for _, txn := range transactions {
			fmt.Printf("  %s  %s  %s\n", txn.Id, txn.When.Format("2006-01-02 15:04:05"), txn.Author)
		}

	case "restore":
		id, _ := splitWord(rest)
		if id == "" {
			fmt.Printf("%s✗ Usage: restore <transaction-id>%s\n", ErrorColor, ResetColor)
			return
		}
		cli.report(cli.store.RestoreTo(ps.Transaction{Id: id}))

	case "export":
		target, _ := splitWord(rest)
		if target == "" {
			fmt.Printf("%s✗ Usage: export <path-or-url>%s\n", ErrorColor, ResetColor)
			return
		}
		cli.report(cli.store.ExportTo(context.Background(), target, nil))

	case "import":
		source, _ := splitWord(rest)
		if source == "" {
			fmt.Printf("%s✗ Usage: import <path-or-url>%s\n", ErrorColor, ResetColor)
			return
		}
		cli.report(cli.store.ImportFrom(context.Background(), source, nil))

	default:
		fmt.Printf("%s✗ Unknown operation: %s (type .help for commands)%s\n", ErrorColor, op, ResetColor)
	}
}

// splitWord returns the first whitespace-delimited word and the trimmed
// remainder of the line.
func splitWord(line string) (string, string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", ""
	}
	idx := strings.IndexAny(line, " \t")
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimSpace(line[idx:])
}

// splitWhere splits a payload at the last top-level " where " keyword.
// JSON values never contain the bare word outside of strings, so a simple
// reverse scan outside quotes is enough.
func splitWhere(payload string) (value, where string) {
	lowered := strings.ToLower(payload)
	inString := false
	for i := len(payload) - 7; i >= 0; i-- {
		if payload[i] == '"' && (i == 0 || payload[i-1] != '\\') {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		if lowered[i:i+7] == " where " {
			return strings.TrimSpace(payload[:i]), strings.TrimSpace(payload[i+7:])
		}
	}
	return strings.TrimSpace(payload), ""
}

// parseMatcher builds a condition from the text after "where". Two forms:
//
//	where <json>          matches records equal to the value
//	where <field>=<json>  matches mapping records on one field
//
// Empty text yields a nil condition (full overwrite for update).
func parseMatcher(text string) (core.Condition, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	if field, rest, ok := strings.Cut(text, "="); ok && isFieldName(field) {
		want, err := core.DecodeValue([]byte(rest))
		if err != nil {
			return nil, fmt.Errorf("malformed match value: %w", err)
		}
		return core.FieldEquals(strings.TrimSpace(field), want), nil
	}

	want, err := core.DecodeValue([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("malformed match value: %w", err)
	}
	return core.ValueEquals(want), nil
}

func isFieldName(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return !strings.ContainsAny(s, "{}[]\" \t")
}

func (cli *CLI) printRecord(v core.Record) {
	encoded, err := core.EncodeIndent(v)
	if err != nil {
		fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		return
	}
	fmt.Println(string(encoded))
}

func (cli *CLI) report(ok bool) {
	if ok {
		fmt.Printf("%s✓ OK%s\n", SuccessColor, ResetColor)
	} else {
		cli.fail()
	}
}

func (cli *CLI) fail() {
	if err := cli.store.LastError(); err != nil {
		fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
	} else {
		fmt.Printf("%s✗ Failed%s\n", ErrorColor, ResetColor)
	}
}

func (cli *CLI) printHelp() {
	fmt.Println()
	fmt.Printf("%s%sSpecial Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println("  .help, .h        Show this help message")
	fmt.Println("  .quit, .exit     Exit the CLI")
	fmt.Println("  .tables          List table names")
	fmt.Println("  .info <table>    Show a table's shape and length")
	fmt.Println("  .history         Show command history")
	fmt.Println("  .clear           Clear the screen")
	fmt.Println("  .version         Show version info")
	fmt.Println()
	fmt.Printf("%s%sStore Operations:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println("  tables                              List table names")
	fmt.Println("  get [<table>]                       Show a table, or the whole database")
	fmt.Println("  exists <table>                      Check whether a table exists")
	fmt.Println("  info <table>                        Show a table's shape and length")
	fmt.Println("  create <table> [<json>]             Create a table (default: empty list)")
	fmt.Println("  insert <table> <json>               Insert a value into a table")
	fmt.Println("  update <table> <json>               Overwrite a table's contents")
	fmt.Println("  update <table> <json> where <m>     Replace matching records")
	fmt.Println("  delete <table> all                  Clear a table")
	fmt.Println("  delete <table> where <m>            Delete matching records")
	fmt.Println("  history                             List transactions (versioned mode)")
	fmt.Println("  restore <id>                        Restore a past transaction")
	fmt.Println("  export <path-or-url>                Copy the backing file out")
	fmt.Println("  import <path-or-url>                Replace the database from a copy")
	fmt.Println()
	fmt.Printf("%s%sMatch forms:%s <json> for whole-record equality, <field>=<json> for one field\n", BoldColor, PromptColor, ResetColor)
	fmt.Println()
}

func (cli *CLI) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	// Limit history size
	if len(cli.history) > 1000 {
		cli.history = cli.history[len(cli.history)-1000:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Println("No command history")
		return
	}

	start := 0
	if len(cli.history) > 20 {
		start = len(cli.history) - 20
	}

	for i := start; i < len(cli.history); i++ {
		fmt.Printf("  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".jsondb_history")
}

func (cli *CLI) loadHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cli.history = append(cli.history, scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	// Save last 1000 entries
	start := 0
	if len(cli.history) > 1000 {
		start = len(cli.history) - 1000
	}

	for i := start; i < len(cli.history); i++ {
		_, _ = file.WriteString(cli.history[i] + "\n")
	}
}

// runScript executes commands from a file, one per line. Blank lines and
// lines starting with # are skipped.
func (cli *CLI) runScript(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fmt.Printf("%s[%d]%s %s\n", PromptColor, lineNo, ResetColor, line)
		cli.execute(line)
	}
	return scanner.Err()
}
