package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tabsql/tabsql/engine"
	"github.com/tabsql/tabsql/plan"
	"github.com/tabsql/tabsql/sql"
)

var fOutput = flag.String(
	"output",
	"",
	"specify path to save output file, default write to STDOUT",
)

var fDump = flag.Bool(
	"dump",
	false,
	"dump the query plan instead of running the query",
)

var fMultiTable = flag.Bool(
	"multi-table-args",
	false,
	"allow more than one TABLE(...) argument per function call",
)

func oops(stage string, err error) {
	fmt.Fprintf(os.Stderr, "ERROR [%s]]] %s\n", stage, err)
	os.Exit(-1)
}

func readStdin() string {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		oops("read sql", err)
	}
	return string(data)
}

func dumpPlan(session *engine.Session, code string) string {
	c, err := sql.Parse(code)
	if err != nil {
		oops("parse", err)
	}
	if c.Select == nil {
		oops("plan", fmt.Errorf("only a select statement has a plan to dump"))
	}

	cfg := plan.DefaultConfig()
	cfg.AllowMultipleTableArguments = *fMultiTable

	p, err := plan.PlanQuery(c.Select, session, cfg)
	if err != nil {
		oops("plan", err)
	}
	return p.Print()
}

func main() {
	flag.Parse()
	code := readStdin()

	session := engine.NewSessionWith(engine.Config{
		AllowMultipleTableArguments: *fMultiTable,
	})

	var out *os.File
	if *fOutput == "" {
		out = os.Stdout
	} else {
		f, err := os.Create(*fOutput)
		if err != nil {
			oops("save", err)
		}
		defer f.Close()
		out = f
	}

	if *fDump {
		fmt.Fprintln(out, dumpPlan(session, code))
		os.Exit(0)
	}

	df, err := session.SQL(code)
	if err != nil {
		oops("run", err)
	}
	if err := df.Show(out); err != nil {
		oops("show", err)
	}
	os.Exit(0)
}
