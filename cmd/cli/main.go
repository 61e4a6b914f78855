package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/grizzlydb/LedgerDB/core"
	"github.com/grizzlydb/LedgerDB/db"
	"github.com/grizzlydb/LedgerDB/ps"
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
	engine      *db.Engine
	history     []string
	historyFile string
}

func main() {
	baseDir := flag.String("baseDir", "", "Base directory for checkpoints (plain files)")
	gitDir := flag.String("gitDir", "", "Base directory for a git-backed checkpoint store")
	name := flag.String("timeline", "ledger", "Timeline name")
	fanout := flag.Int("fanout", 0, "Commit tree fan-out bound (0 = default)")
	secret := flag.String("secret", "", "Shared secret for signed receipts")
	userName := flag.String("name", "LedgerDB", "Committer name for the git store")
	userEmail := flag.String("email", "cli@ledgerdb.local", "Committer email for the git store")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	printBanner()

	var store ps.Store
	switch {
	case *gitDir != "":
		fmt.Printf("%sUsing git checkpoint store: %s%s\n", SuccessColor, *gitDir, ResetColor)
		gitStore, err := ps.NewGitFileStore(*gitDir, core.Identity{Name: *userName, Email: *userEmail})
		if err != nil {
			fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
			return
		}
		store = gitStore
	case *baseDir != "":
		fmt.Printf("%sUsing file checkpoint store: %s%s\n", SuccessColor, *baseDir, ResetColor)
		fileStore, err := ps.NewFileStore(*baseDir)
		if err != nil {
			fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
			return
		}
		store = fileStore
	default:
		fmt.Printf("%sUsing in-memory checkpoint store%s\n", SuccessColor, ResetColor)
		store = ps.NewMemoryStore()
	}

	level := zerolog.WarnLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	engine := db.NewEngine(db.Config{
		Name:          *name,
		Fanout:        *fanout,
		Store:         store,
		Logger:        logger,
		ReceiptSecret: []byte(*secret),
		ReceiptIssuer: "ledgerdb-cli",
	})

	cli := &CLI{
		engine:      engine,
		historyFile: getHistoryPath(),
	}

	cli.loadHistory()
	cli.run()
}

func printBanner() {
	fmt.Println()
	bannerWidth := 39 // inner width of the banner box
	versionLine := fmt.Sprintf("LedgerDB v%s", Version)
	padding := bannerWidth - len(versionLine) - 2 // -2 for "  " margins
	if padding < 0 {
		padding = 0
	}
	leftPad := padding / 2
	rightPad := padding - leftPad

	fmt.Printf("%s%s╔═══════════════════════════════════════╗%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s║ %*s%s%*s ║%s\n", BoldColor, PromptColor, leftPad, "", versionLine, rightPad, "", ResetColor)
	fmt.Printf("%s%s║   Tamper-evident Commit Timeline      ║%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s╚═══════════════════════════════════════╝%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println()
	fmt.Println("Type .help for commands, .quit to exit")
	fmt.Println()
}

func (cli *CLI) run() {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Printf("%sledgerdb>%s ", PromptColor, ResetColor)

		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Printf("\n%sGoodbye!%s\n", SuccessColor, ResetColor)
			return
		}

		input = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(input, "\n"), "\r"))
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, ".") {
			cli.handleCommand(input)
			continue
		}

		cli.addToHistory(input)

		if err := cli.execute(input); err != nil {
			fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		}
	}
}

// execute dispatches one timeline command.
func (cli *CLI) execute(line string) error {
	parts := strings.Fields(line)
	verb := strings.ToUpper(parts[0])
	args := parts[1:]
	start := time.Now()

	switch verb {
	case "COMMIT":
		// COMMIT <table> <schemaVersion> <change> [| <change> ...]
		if len(args) < 3 {
			return fmt.Errorf("usage: COMMIT <table> <schemaVersion> <change> [| <change> ...]")
		}
		schema, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("bad schema version %q: %w", args[1], err)
		}
		changes := splitChanges(strings.Join(args[2:], " "))
		id, err := cli.engine.Commit(args[0], changes, int32(schema))
		if err != nil {
			return err
		}
		db.CommitResult{
			CommitID:         id,
			RootHash:         cli.engine.RootHash().String(),
			ExecutionTimeSec: time.Since(start).Seconds(),
		}.Display()
		return nil

	case "ASOF":
		// ASOF <table> <timestamp|snapshot>
		if len(args) != 2 {
			return fmt.Errorf("usage: ASOF <table> <timestamp|snapshot>")
		}
		ts, err := cli.resolveTimestamp(args[1])
		if err != nil {
			return err
		}
		commits, version, err := cli.engine.QueryAsOfWithSchema(args[0], ts)
		if err != nil {
			return err
		}
		db.QueryResult{
			Commits:          commits,
			SchemaVersion:    version,
			HasSchema:        true,
			ExecutionTimeSec: time.Since(start).Seconds(),
		}.Display()
		return nil

	case "SINCE":
		// SINCE <table> <timestamp>
		if len(args) != 2 {
			return fmt.Errorf("usage: SINCE <table> <timestamp>")
		}
		ts, err := cli.resolveTimestamp(args[1])
		if err != nil {
			return err
		}
		commits, err := cli.engine.CommitsSince(args[0], ts)
		if err != nil {
			return err
		}
		db.QueryResult{Commits: commits, ExecutionTimeSec: time.Since(start).Seconds()}.Display()
		return nil

	case "RANGE":
		// RANGE <table> <start> <end>   (end 0 = unbounded)
		if len(args) != 3 {
			return fmt.Errorf("usage: RANGE <table> <start> <end>")
		}
		startTs, err := cli.resolveTimestamp(args[1])
		if err != nil {
			return err
		}
		endTs, err := cli.resolveTimestamp(args[2])
		if err != nil {
			return err
		}
		commits, err := cli.engine.QueryTimeRange(args[0], startTs, endTs)
		if err != nil {
			return err
		}
		db.QueryResult{Commits: commits, ExecutionTimeSec: time.Since(start).Seconds()}.Display()
		return nil

	case "SNAPSHOT":
		// SNAPSHOT <name> [timestamp]
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("usage: SNAPSHOT <name> [timestamp]")
		}
		ts := time.Now().UnixMilli()
		if len(args) == 2 {
			var err error
			if ts, err = cli.resolveTimestamp(args[1]); err != nil {
				return err
			}
		}
		if err := cli.engine.CreateSnapshot(args[0], ts); err != nil {
			return err
		}
		fmt.Printf("%s✓ Snapshot %s at %d%s\n", SuccessColor, args[0], ts, ResetColor)
		return nil

	case "WATERMARK":
		// WATERMARK <table> [timestamp]
		switch len(args) {
		case 1:
			w, ok := cli.engine.Watermark(args[0])
			if !ok {
				return fmt.Errorf("no watermark for table %s", args[0])
			}
			fmt.Printf("%d\n", w)
			return nil
		case 2:
			ts, err := cli.resolveTimestamp(args[1])
			if err != nil {
				return err
			}
			cli.engine.UpdateWatermark(args[0], ts)
			fmt.Printf("%s✓ Watermark updated%s\n", SuccessColor, ResetColor)
			return nil
		default:
			return fmt.Errorf("usage: WATERMARK <table> [timestamp]")
		}

	case "SCHEMA":
		// SCHEMA <timestamp>
		if len(args) != 1 {
			return fmt.Errorf("usage: SCHEMA <timestamp>")
		}
		ts, err := cli.resolveTimestamp(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%d\n", cli.engine.SchemaVersionAt(ts))
		return nil

	case "PROOF":
		// PROOF <commitID>
		if len(args) != 1 {
			return fmt.Errorf("usage: PROOF <commitID>")
		}
		proof, err := cli.engine.Proof(args[0])
		if err != nil {
			return err
		}
		if !cli.engine.VerifyProof(proof) {
			return fmt.Errorf("proof for %s does not verify against current root", args[0])
		}
		fmt.Printf("%s✓ %s proven against root %s (%d proof hashes)%s\n",
			SuccessColor, args[0], cli.engine.RootHash(), len(proof.ProofHashes), ResetColor)
		return nil

	case "RECEIPT":
		// RECEIPT <commitID> | RECEIPT VERIFY <token>
		if len(args) == 2 && strings.EqualFold(args[0], "VERIFY") {
			r, err := cli.engine.VerifyReceipt(args[1])
			if err != nil {
				return err
			}
			fmt.Printf("%s✓ Receipt for %s, root %s%s\n", SuccessColor, r.CommitID, r.RootHash, ResetColor)
			return nil
		}
		if len(args) != 1 {
			return fmt.Errorf("usage: RECEIPT <commitID> | RECEIPT VERIFY <token>")
		}
		token, err := cli.engine.Receipt(args[0])
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil

	case "VERIFY":
		if err := cli.engine.VerifyIntegrity(); err != nil {
			return err
		}
		fmt.Printf("%s✓ Integrity OK, root %s%s\n", SuccessColor, cli.engine.RootHash(), ResetColor)
		return nil

	case "COMPACT":
		compacted, err := cli.engine.Compact()
		if err != nil {
			return err
		}
		if compacted {
			fmt.Printf("%s✓ Commit tree compacted%s\n", SuccessColor, ResetColor)
		} else {
			fmt.Println("Tree is healthy, nothing to compact")
		}
		return nil

	case "ROOT":
		fmt.Println(cli.engine.RootHash())
		return nil

	case "STATS":
		db.StatsResult{Stats: cli.engine.Stats()}.Display()
		return nil

	case "SAVE":
		if err := cli.engine.Save(); err != nil {
			return err
		}
		fmt.Printf("%s✓ Checkpoint saved%s\n", SuccessColor, ResetColor)
		return nil

	case "LOAD":
		if err := cli.engine.Load(); err != nil {
			return err
		}
		fmt.Printf("%s✓ Checkpoint loaded, root %s%s\n", SuccessColor, cli.engine.RootHash(), ResetColor)
		return nil

	default:
		return fmt.Errorf("unknown command: %s (type .help for commands)", verb)
	}
}

// resolveTimestamp accepts a millisecond timestamp, "now", or a snapshot
// name.
func (cli *CLI) resolveTimestamp(arg string) (int64, error) {
	if strings.EqualFold(arg, "now") {
		return time.Now().UnixMilli(), nil
	}
	if ts, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return ts, nil
	}
	if ts, ok := cli.engine.Snapshot(arg); ok {
		return ts, nil
	}
	return 0, fmt.Errorf("not a timestamp or snapshot: %q", arg)
}

// splitChanges splits "a | b | c" into its change statements.
func splitChanges(s string) []string {
	var changes []string
	for _, part := range strings.Split(s, "|") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			changes = append(changes, trimmed)
		}
	}
	return changes
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

	case ".clear", ".cls":
		fmt.Print("\033[H\033[2J")

	case ".history":
		cli.printHistory()

	case ".version":
		fmt.Printf("LedgerDB version %s\n", Version)

	default:
		fmt.Printf("%s✗ Unknown command: %s (type .help for commands)%s\n", ErrorColor, parts[0], ResetColor)
	}
}

func (cli *CLI) printHelp() {
	fmt.Println()
	fmt.Printf("%s%sSpecial Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println("  .help, .h        Show this help message")
	fmt.Println("  .quit, .exit     Exit the CLI")
	fmt.Println("  .history         Show command history")
	fmt.Println("  .clear           Clear the screen")
	fmt.Println("  .version         Show version info")
	fmt.Println()
	fmt.Printf("%s%sTimeline Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println("  COMMIT <table> <schemaVersion> <change> [| <change> ...]")
	fmt.Println("  ASOF <table> <timestamp|snapshot|now>")
	fmt.Println("  SINCE <table> <timestamp>")
	fmt.Println("  RANGE <table> <start> <end>      (end 0 = unbounded)")
	fmt.Println("  SNAPSHOT <name> [timestamp]")
	fmt.Println("  WATERMARK <table> [timestamp]")
	fmt.Println("  SCHEMA <timestamp>")
	fmt.Println()
	fmt.Printf("%s%sIntegrity Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println("  PROOF <commitID>")
	fmt.Println("  RECEIPT <commitID>")
	fmt.Println("  RECEIPT VERIFY <token>")
	fmt.Println("  VERIFY")
	fmt.Println("  ROOT")
	fmt.Println()
	fmt.Printf("%s%sMaintenance Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println("  COMPACT")
	fmt.Println("  STATS")
	fmt.Println("  SAVE")
	fmt.Println("  LOAD")
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
	return filepath.Join(home, ".ledgerdb_history")
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
