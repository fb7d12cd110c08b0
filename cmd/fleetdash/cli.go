package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kingpin"
	"github.com/skybi/fleetdash/internal/dashboard"
	"github.com/skybi/fleetdash/internal/fleet"
)

var errMissingPassword = errors.New("no password given")

// cli holds the parsed command line
type cli struct {
	application *kingpin.Application
	out         io.Writer

	baseURL *string
	verbose *bool

	login         *kingpin.CmdClause
	loginUsername *string
	loginPassword *string
	logout        *kingpin.CmdClause
	whoami        *kingpin.CmdClause
	status        *kingpin.CmdClause
	health        *kingpin.CmdClause

	emulatorsList   *kingpin.CmdClause
	emulatorsStart  *kingpin.CmdClause
	emulatorsStop   *kingpin.CmdClause
	emulatorsDelete *kingpin.CmdClause
	emulatorsCreate *kingpin.CmdClause
	emulatorTarget  map[string]*emulatorTarget
	emulatorConfig  *map[string]string

	workstationsList   *kingpin.CmdClause
	workstationsAdd    *kingpin.CmdClause
	workstationsRemove *kingpin.CmdClause
	workstationsTest   *kingpin.CmdClause
	workstationCreate  fleet.WorkstationCreate
	workstationID      map[string]*string

	operationsList   *kingpin.CmdClause
	operationsGet    *kingpin.CmdClause
	operationsCancel *kingpin.CmdClause
	operationID      map[string]*string

	watch          *kingpin.CmdClause
	watchResources *[]string

	serve *kingpin.CmdClause
}

// emulatorTarget identifies the emulator an emulator command acts on
type emulatorTarget struct {
	workstationID *string
	name          *string
}

func newCLI() *cli {
	obj := &cli{
		application:    kingpin.New("fleetdash", "Dashboard and command line client for an emulator fleet backend."),
		out:            os.Stdout,
		emulatorTarget: make(map[string]*emulatorTarget),
		workstationID:  make(map[string]*string),
		operationID:    make(map[string]*string),
	}
	app := obj.application
	app.HelpFlag.Short('h')
	obj.baseURL = app.Flag("api-url", "Base URL of the fleet backend (overrides FLEETDASH_API_BASE_URL).").String()
	obj.verbose = app.Flag("verbose", "Enable debug logging.").Short('v').Bool()

	obj.login = app.Command("login", "Log in to the backend and persist the session.")
	obj.loginUsername = obj.login.Arg("username", "Name of the user to log in as.").Required().String()
	obj.loginPassword = obj.login.Flag("password", "Password of the user; read from stdin if omitted.").
		Short('p').Envar("FLEETDASH_PASSWORD").String()
	obj.logout = app.Command("logout", "End the persisted session.")
	obj.whoami = app.Command("whoami", "Show the user the session is authenticated as.")
	obj.status = app.Command("status", "Show the system status overview.")
	obj.health = app.Command("health", "Show the health of the backend.")

	emulators := app.Command("emulators", "Manage emulators.")
	obj.emulatorsList = emulators.Command("list", "List all emulators.").Default()
	obj.emulatorsStart = obj.emulatorCommand(emulators, "start", "Start an emulator.")
	obj.emulatorsStop = obj.emulatorCommand(emulators, "stop", "Stop an emulator.")
	obj.emulatorsDelete = obj.emulatorCommand(emulators, "delete", "Delete an emulator.")
	obj.emulatorsCreate = obj.emulatorCommand(emulators, "create", "Create an emulator.")
	obj.emulatorConfig = obj.emulatorsCreate.Flag("config", "Emulator configuration entry (key=value).").Short('c').StringMap()

	workstations := app.Command("workstations", "Manage workstations.")
	obj.workstationsList = workstations.Command("list", "List all workstations.").Default()
	obj.workstationsAdd = workstations.Command("add", "Register a workstation.")
	obj.workstationsAdd.Arg("name", "Name of the workstation.").Required().StringVar(&obj.workstationCreate.Name)
	obj.workstationsAdd.Arg("address", "IP address or hostname of the workstation.").Required().StringVar(&obj.workstationCreate.IPAddress)
	obj.workstationsAdd.Flag("path", "Path of the emulator installation on the workstation.").StringVar(&obj.workstationCreate.Path)
	obj.workstationsAdd.Flag("port", "SSH port of the workstation.").IntVar(&obj.workstationCreate.Port)
	obj.workstationsAdd.Flag("username", "User to connect to the workstation as.").StringVar(&obj.workstationCreate.Username)
	obj.workstationsAdd.Flag("password", "Password to connect to the workstation with.").
		Envar("FLEETDASH_WORKSTATION_PASSWORD").StringVar(&obj.workstationCreate.Password)
	obj.workstationsRemove = obj.idCommand(workstations, "remove", "Remove a workstation.", "workstation", obj.workstationID)
	obj.workstationsTest = obj.idCommand(workstations, "test", "Test the connection to a workstation.", "workstation", obj.workstationID)

	operations := app.Command("operations", "Inspect the operation log.")
	obj.operationsList = operations.Command("list", "List the most recent operations.").Default()
	obj.operationsGet = obj.idCommand(operations, "get", "Show a single operation.", "operation", obj.operationID)
	obj.operationsCancel = obj.idCommand(operations, "cancel", "Cancel a running operation.", "operation", obj.operationID)

	obj.watch = app.Command("watch", "Continuously show the live dashboard in the terminal.")
	obj.watchResources = obj.watch.Arg("resource", "Resources to show (default: all).").
		Enums(dashboard.ResourceStatus, dashboard.ResourceEmulators, dashboard.ResourceWorkstations, dashboard.ResourceOperations)

	obj.serve = app.Command("serve", "Serve the web dashboard.")
	return obj
}

func (obj *cli) emulatorCommand(parent *kingpin.CmdClause, name, help string) *kingpin.CmdClause {
	command := parent.Command(name, help)
	obj.emulatorTarget[command.FullCommand()] = &emulatorTarget{
		workstationID: command.Arg("workstation", "ID of the workstation hosting the emulator.").Required().String(),
		name:          command.Arg("name", "Name of the emulator.").Required().String(),
	}
	return command
}

func (obj *cli) idCommand(parent *kingpin.CmdClause, name, help, kind string, ids map[string]*string) *kingpin.CmdClause {
	command := parent.Command(name, help)
	ids[command.FullCommand()] = command.Arg("id", "ID of the "+kind+".").Required().String()
	return command
}

// run executes the parsed command
func (obj *cli) run(ctx context.Context, app *app, command string) error {
	controller := app.controller
	switch command {
	case obj.login.FullCommand():
		password, err := obj.password()
		if err != nil {
			return err
		}
		if _, err := controller.Login(ctx, *obj.loginUsername, password); err != nil {
			return err
		}
		fmt.Fprintf(obj.out, "Logged in as %s\n", *obj.loginUsername)
		return nil
	case obj.logout.FullCommand():
		if err := controller.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(obj.out, "Logged out")
		return nil
	case obj.health.FullCommand():
		health, err := app.client.GetHealth(ctx)
		if err != nil {
			return controller.Check(err)
		}
		fmt.Fprintln(obj.out, health.DisplayStatus())
		return nil
	case obj.serve.FullCommand():
		return serve(ctx, app)
	}

	if !controller.Authenticated() {
		return errLoginRequired
	}

	switch command {
	case obj.whoami.FullCommand():
		user, err := app.client.CurrentUser(ctx)
		if err != nil {
			return controller.Check(err)
		}
		fmt.Fprintf(obj.out, "%s (%s)\n", user.Username, orUnknown(user.Role))
		return nil
	case obj.status.FullCommand():
		summary, err := controller.Summary(ctx)
		if err != nil {
			return err
		}
		return dashboard.RenderSummary(obj.out, summary)

	case obj.emulatorsList.FullCommand():
		rows, err := controller.Emulators(ctx)
		if err != nil {
			return err
		}
		return dashboard.RenderEmulators(obj.out, rows)
	case obj.emulatorsStart.FullCommand():
		return obj.emulatorAction(command, "Started", func(workstationID fleet.ID, name string) error {
			return controller.StartEmulator(ctx, workstationID, name)
		})
	case obj.emulatorsStop.FullCommand():
		return obj.emulatorAction(command, "Stopped", func(workstationID fleet.ID, name string) error {
			return controller.StopEmulator(ctx, workstationID, name)
		})
	case obj.emulatorsDelete.FullCommand():
		return obj.emulatorAction(command, "Deleted", func(workstationID fleet.ID, name string) error {
			return controller.DeleteEmulator(ctx, workstationID, name)
		})
	case obj.emulatorsCreate.FullCommand():
		config := make(map[string]any, len(*obj.emulatorConfig))
		for key, value := range *obj.emulatorConfig {
			config[key] = value
		}
		return obj.emulatorAction(command, "Created", func(workstationID fleet.ID, name string) error {
			return controller.CreateEmulator(ctx, workstationID, name, config)
		})

	case obj.workstationsList.FullCommand():
		rows, err := controller.Workstations(ctx)
		if err != nil {
			return err
		}
		return dashboard.RenderWorkstations(obj.out, rows)
	case obj.workstationsAdd.FullCommand():
		workstation, err := controller.AddWorkstation(ctx, &obj.workstationCreate)
		if err != nil {
			return err
		}
		fmt.Fprintf(obj.out, "Added workstation %s (%s)\n", workstation.DisplayName(), workstation.ID)
		return nil
	case obj.workstationsRemove.FullCommand():
		id := fleet.ParseID(*obj.workstationID[command])
		if err := controller.RemoveWorkstation(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(obj.out, "Removed workstation %s\n", id)
		return nil
	case obj.workstationsTest.FullCommand():
		result, err := controller.TestConnection(ctx, fleet.ParseID(*obj.workstationID[command]))
		if err != nil {
			return err
		}
		fmt.Fprintln(obj.out, resultMessage(result, "Connection successful"))
		return nil

	case obj.operationsList.FullCommand():
		rows, err := controller.Operations(ctx)
		if err != nil {
			return err
		}
		return dashboard.RenderOperations(obj.out, rows)
	case obj.operationsGet.FullCommand():
		row, err := controller.Operation(ctx, fleet.ParseID(*obj.operationID[command]))
		if err != nil {
			return err
		}
		return dashboard.RenderOperations(obj.out, []dashboard.OperationRow{*row})
	case obj.operationsCancel.FullCommand():
		id := fleet.ParseID(*obj.operationID[command])
		if err := controller.CancelOperation(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(obj.out, "Cancelled operation %s\n", id)
		return nil

	case obj.watch.FullCommand():
		return watch(ctx, app, obj.out, *obj.watchResources)
	}
	return fmt.Errorf("unhandled command %q", command)
}

func (obj *cli) emulatorAction(command, done string, action func(workstationID fleet.ID, name string) error) error {
	target := obj.emulatorTarget[command]
	workstationID := fleet.ParseID(*target.workstationID)
	if err := action(workstationID, *target.name); err != nil {
		return err
	}
	fmt.Fprintf(obj.out, "%s emulator %s on workstation %s\n", done, *target.name, workstationID)
	return nil
}

// password returns the password given on the command line or reads it from stdin
func (obj *cli) password() (string, error) {
	if *obj.loginPassword != "" {
		return *obj.loginPassword, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errMissingPassword
	}
	return password, nil
}

func resultMessage(result *fleet.Result, fallback string) string {
	if result == nil || result.Message == "" {
		return fallback
	}
	return result.Message
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
