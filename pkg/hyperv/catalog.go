// Package hyperv defines the provider's action catalog: the fixed set
// of Hyper-V control operations, each with its parameter schema, its
// PowerShell script, and its output decoder. The catalog is assembled
// once and handed to the registry; nothing here talks to the tool
// directly.
package hyperv

import (
	"github.com/ormasoftchile/hvcpi/pkg/action"
	"github.com/ormasoftchile/hvcpi/pkg/normalize"
	"github.com/ormasoftchile/hvcpi/pkg/registry"
	"github.com/ormasoftchile/hvcpi/pkg/script"
	"github.com/ormasoftchile/hvcpi/pkg/shell"
)

// Defaults are the provider-level fallbacks applied to optional
// parameters. They mirror the tool's own conventions and can be
// overridden through the config file.
type Defaults struct {
	MemoryMB       int64  `yaml:"memory_mb" json:"memory_mb"`
	CPUCount       int64  `yaml:"cpu_count" json:"cpu_count"`
	Generation     int64  `yaml:"generation" json:"generation"`
	SwitchName     string `yaml:"switch_name" json:"switch_name"`
	ControllerType string `yaml:"controller_type" json:"controller_type"`
}

// DefaultSettings returns the stock defaults used when no config is given.
func DefaultSettings() Defaults {
	return Defaults{
		MemoryMB:       2048,
		CPUCount:       2,
		Generation:     2,
		SwitchName:     "Default Switch",
		ControllerType: "SCSI",
	}
}

// Catalog builds the full, ordered action set. Order is part of the
// catalog contract: listings always enumerate in this sequence.
func Catalog(d Defaults) []registry.Action {
	return []registry.Action{
		{
			Definition: action.Definition{
				Name:        "test_install",
				Description: "Test if Hyper-V is properly installed",
			},
			Shape: normalize.JSON,
			Build: func(action.Args) *script.Script {
				return script.New().Add("$PSVersionTable.PSVersion | Select-Object Major, Minor | ConvertTo-Json")
			},
			Parse: decodeInstallProbe,
		},
		{
			Definition: action.Definition{
				Name:        "list_workers",
				Description: "List all virtual machines",
			},
			Shape: normalize.Table,
			Build: func(action.Args) *script.Script {
				return script.New().Add("Get-VM | Select-Object Name, Id, State | ConvertTo-Csv -NoTypeInformation")
			},
			Parse: decodeWorkerList,
		},
		{
			Definition: action.Definition{
				Name:        "create_worker",
				Description: "Create a new virtual machine",
				Params: []action.Param{
					{Name: "worker_name", Description: "Name of the VM to create", Kind: action.String, Required: true},
					{Name: "memory_mb", Description: "Memory in MB", Kind: action.Int, Default: d.MemoryMB},
					{Name: "cpu_count", Description: "Number of CPUs", Kind: action.Int, Default: d.CPUCount},
					{Name: "generation", Description: "VM generation (1 or 2)", Kind: action.Int, Default: d.Generation},
					{Name: "switch_name", Description: "Network switch to connect to", Kind: action.String, Default: d.SwitchName},
				},
			},
			Shape: normalize.JSON,
			Build: func(args action.Args) *script.Script {
				name := script.Quote(args.String("worker_name"))
				// The existence guard runs inside the same script, so a
				// transient tool failure is not mistaken for absence and
				// the whole action still costs one invocation.
				return script.New().
					Add("if (Get-VM -Name %s -ErrorAction SilentlyContinue) { throw %s }",
						name, script.Quote("worker already exists: "+args.String("worker_name"))).
					Add("New-VM -Name %s -MemoryStartupBytes %dMB -Generation %d -SwitchName %s | Out-Null",
						name, args.Int("memory_mb"), args.Int("generation"), script.Quote(args.String("switch_name"))).
					Add("Set-VM -Name %s -ProcessorCount %d", name, args.Int("cpu_count")).
					Add("Get-VM -Name %s | Select-Object Name, Id, State | ConvertTo-Json", name)
			},
			Parse: decodeCreatedWorker,
		},
		{
			Definition: action.Definition{
				Name:        "delete_worker",
				Description: "Delete a virtual machine",
				Params: []action.Param{
					{Name: "worker_name", Description: "Name of the VM to delete", Kind: action.String, Required: true},
				},
			},
			Shape: normalize.SideEffect,
			Build: func(args action.Args) *script.Script {
				name := script.Quote(args.String("worker_name"))
				// Stopping a machine that is already off fails; that must
				// never abort the removal.
				return script.New().
					AddNonFatal("Stop-VM -Name %s -TurnOff -Force", name).
					Add("Remove-VM -Name %s -Force", name)
			},
		},
		{
			Definition: action.Definition{
				Name:        "get_worker",
				Description: "Get information about a virtual machine",
				Params: []action.Param{
					{Name: "worker_name", Description: "Name of the VM", Kind: action.String, Required: true},
				},
			},
			Shape: normalize.JSON,
			Build: func(args action.Args) *script.Script {
				name := script.Quote(args.String("worker_name"))
				return script.New().
					Add("$vm = Get-VM -Name %s -ErrorAction Stop", name).
					Add("$vm | Select-Object Name, Id, State, " +
						"@{Name='MemoryMB';Expression={$_.MemoryStartup / 1MB}}, " +
						"@{Name='CPUCount';Expression={$_.ProcessorCount}}, " +
						"@{Name='Generation';Expression={$_.Generation}} | ConvertTo-Json")
			},
			Parse: decodeWorkerDetail,
		},
		{
			Definition: action.Definition{
				Name:        "has_worker",
				Description: "Check if a virtual machine exists",
				Params: []action.Param{
					{Name: "worker_name", Description: "Name of the VM", Kind: action.String, Required: true},
				},
			},
			Shape: normalize.Scalar,
			Build: func(args action.Args) *script.Script {
				return script.New().Add(
					"Get-VM -Name %s -ErrorAction SilentlyContinue | Measure-Object | Select-Object -ExpandProperty Count",
					script.Quote(args.String("worker_name")))
			},
			Parse: decodeExistsCount,
		},
		{
			Definition: action.Definition{
				Name:        "start_worker",
				Description: "Start a virtual machine",
				Params: []action.Param{
					{Name: "worker_name", Description: "Name of the VM to start", Kind: action.String, Required: true},
				},
			},
			Shape: normalize.SideEffect,
			Build: func(args action.Args) *script.Script {
				return script.New().Add("Start-VM -Name %s", script.Quote(args.String("worker_name")))
			},
			Parse: func(args action.Args, _ *shell.Result) (action.Result, error) {
				return action.Result{"success": true, "started": args.String("worker_name")}, nil
			},
		},
		{
			Definition: action.Definition{
				Name:        "get_volumes",
				Description: "List all virtual disk volumes",
			},
			Shape: normalize.JSON,
			Build: func(action.Args) *script.Script {
				return script.New().Add("Get-VHD | Select-Object Path, VhdType, Size | ConvertTo-Json")
			},
			Parse: decodeVolumeList,
		},
		{
			Definition: action.Definition{
				Name:        "has_volume",
				Description: "Check if a disk volume exists",
				Params: []action.Param{
					{Name: "disk_path", Description: "Path to the disk", Kind: action.String, Required: true},
				},
			},
			Shape: normalize.Scalar,
			Build: func(args action.Args) *script.Script {
				return script.New().Add("Test-Path -Path %s -PathType Leaf", script.Quote(args.String("disk_path")))
			},
			Parse: decodeExistsBool,
		},
		{
			Definition: action.Definition{
				Name:        "create_volume",
				Description: "Create a new disk volume",
				Params: []action.Param{
					{Name: "disk_path", Description: "Path for the new disk", Kind: action.String, Required: true},
					{Name: "size_mb", Description: "Size in MB", Kind: action.Int, Required: true},
				},
			},
			Shape: normalize.JSON,
			Build: func(args action.Args) *script.Script {
				path := script.Quote(args.String("disk_path"))
				return script.New().
					Add("New-VHD -Path %s -SizeBytes %dMB -Dynamic | Out-Null", path, args.Int("size_mb")).
					Add("Get-VHD -Path %s | Select-Object Path | ConvertTo-Json", path)
			},
			Parse: decodeVolumePath("disk_path"),
		},
		{
			Definition: action.Definition{
				Name:        "delete_volume",
				Description: "Delete a disk volume",
				Params: []action.Param{
					{Name: "disk_path", Description: "Path to the disk", Kind: action.String, Required: true},
				},
			},
			Shape: normalize.SideEffect,
			Build: func(args action.Args) *script.Script {
				return script.New().Add("Remove-Item -Path %s -Force", script.Quote(args.String("disk_path")))
			},
		},
		{
			Definition: action.Definition{
				Name:        "attach_volume",
				Description: "Attach a disk to a VM",
				Params: []action.Param{
					{Name: "worker_name", Description: "Name of the VM", Kind: action.String, Required: true},
					{Name: "controller_type", Description: "Type of controller (IDE, SCSI, DVD)", Kind: action.String, Default: d.ControllerType},
					{Name: "disk_path", Description: "Path to the disk", Kind: action.String, Required: true},
				},
			},
			Shape: normalize.SideEffect,
			Build: buildAttach,
		},
		{
			Definition: action.Definition{
				Name:        "detach_volume",
				Description: "Detach a disk from a VM",
				Params: []action.Param{
					{Name: "worker_name", Description: "Name of the VM", Kind: action.String, Required: true},
					{Name: "controller_type", Description: "Type of controller (IDE, SCSI, DVD)", Kind: action.String, Default: d.ControllerType},
					{Name: "disk_path", Description: "Path to the disk", Kind: action.String, Required: true},
				},
			},
			Shape: normalize.SideEffect,
			Build: buildDetach,
		},
		{
			Definition: action.Definition{
				Name:        "create_snapshot",
				Description: "Create a snapshot of a VM",
				Params: []action.Param{
					{Name: "worker_name", Description: "Name of the VM", Kind: action.String, Required: true},
					{Name: "snapshot_name", Description: "Name of the snapshot", Kind: action.String, Required: true},
				},
			},
			Shape: normalize.JSON,
			Build: func(args action.Args) *script.Script {
				return script.New().Add("Checkpoint-VM -Name %s -SnapshotName %s | Select-Object Id | ConvertTo-Json",
					script.Quote(args.String("worker_name")), script.Quote(args.String("snapshot_name")))
			},
			Parse: decodeSnapshotID,
		},
		{
			Definition: action.Definition{
				Name:        "delete_snapshot",
				Description: "Delete a snapshot of a VM",
				Params: []action.Param{
					{Name: "worker_name", Description: "Name of the VM", Kind: action.String, Required: true},
					{Name: "snapshot_name", Description: "Name of the snapshot", Kind: action.String, Required: true},
				},
			},
			Shape: normalize.SideEffect,
			Build: func(args action.Args) *script.Script {
				return script.New().Add("Remove-VMSnapshot -VMName %s -Name %s -IncludeAllChildSnapshots",
					script.Quote(args.String("worker_name")), script.Quote(args.String("snapshot_name")))
			},
		},
		{
			Definition: action.Definition{
				Name:        "has_snapshot",
				Description: "Check if a snapshot exists",
				Params: []action.Param{
					{Name: "worker_name", Description: "Name of the VM", Kind: action.String, Required: true},
					{Name: "snapshot_name", Description: "Name of the snapshot", Kind: action.String, Required: true},
				},
			},
			Shape: normalize.Scalar,
			Build: func(args action.Args) *script.Script {
				return script.New().Add(
					"Get-VMSnapshot -VMName %s -Name %s -ErrorAction SilentlyContinue | Measure-Object | Select-Object -ExpandProperty Count",
					script.Quote(args.String("worker_name")), script.Quote(args.String("snapshot_name")))
			},
			Parse: decodeExistsCount,
		},
		{
			Definition: action.Definition{
				Name:        "reboot_worker",
				Description: "Reboot a VM",
				Params: []action.Param{
					{Name: "worker_name", Description: "Name of the VM", Kind: action.String, Required: true},
				},
			},
			Shape: normalize.SideEffect,
			Build: func(args action.Args) *script.Script {
				return script.New().Add("Restart-VM -Name %s -Force", script.Quote(args.String("worker_name")))
			},
		},
		{
			Definition: action.Definition{
				Name:        "configure_networks",
				Description: "Configure network settings for a VM",
				Params: []action.Param{
					{Name: "worker_name", Description: "Name of the VM", Kind: action.String, Required: true},
					{Name: "switch_name", Description: "Name of the virtual switch", Kind: action.String, Required: true},
				},
			},
			Shape: normalize.SideEffect,
			Build: func(args action.Args) *script.Script {
				return script.New().Add("Get-VMNetworkAdapter -VMName %s | Connect-VMNetworkAdapter -SwitchName %s",
					script.Quote(args.String("worker_name")), script.Quote(args.String("switch_name")))
			},
		},
		{
			Definition: action.Definition{
				Name:        "set_worker_metadata",
				Description: "Set metadata for a VM",
				Params: []action.Param{
					{Name: "worker_name", Description: "Name of the VM", Kind: action.String, Required: true},
					{Name: "key", Description: "Metadata key", Kind: action.String, Required: true},
					{Name: "value", Description: "Metadata value", Kind: action.String, Required: true},
				},
			},
			Shape: normalize.SideEffect,
			Build: func(args action.Args) *script.Script {
				name := script.Quote(args.String("worker_name"))
				entry := script.Quote(args.String("key") + "=" + args.String("value"))
				// Hyper-V has no native metadata store; entries are
				// appended to the VM's Notes field, one per line.
				return script.New().
					Add("$vm = Get-VM -Name %s", name).
					Add("$entry = %s", entry).
					Add("$notes = if ($vm.Notes) { $vm.Notes + [Environment]::NewLine + $entry } else { $entry }").
					Add("Set-VM -Name %s -Notes $notes", name)
			},
		},
		{
			Definition: action.Definition{
				Name:        "snapshot_volume",
				Description: "Clone a disk volume",
				Params: []action.Param{
					{Name: "source_volume_path", Description: "Path to the source disk", Kind: action.String, Required: true},
					{Name: "target_volume_path", Description: "Path for the cloned disk", Kind: action.String, Required: true},
				},
			},
			Shape: normalize.JSON,
			Build: func(args action.Args) *script.Script {
				target := script.Quote(args.String("target_volume_path"))
				return script.New().
					Add("Convert-VHD -Path %s -DestinationPath %s -VHDType Differencing | Out-Null",
						script.Quote(args.String("source_volume_path")), target).
					Add("Get-VHD -Path %s | Select-Object Path | ConvertTo-Json", target)
			},
			Parse: decodeVolumePath("target_volume_path"),
		},
	}
}

func buildAttach(args action.Args) *script.Script {
	vm := script.Quote(args.String("worker_name"))
	disk := script.Quote(args.String("disk_path"))
	switch lower(args.String("controller_type")) {
	case "ide":
		return script.New().Add("Add-VMHardDiskDrive -VMName %s -Path %s -ControllerType IDE", vm, disk)
	case "dvd":
		return script.New().Add("Add-VMDvdDrive -VMName %s -Path %s", vm, disk)
	default:
		return script.New().Add("Add-VMHardDiskDrive -VMName %s -Path %s -ControllerType SCSI", vm, disk)
	}
}

func buildDetach(args action.Args) *script.Script {
	vm := script.Quote(args.String("worker_name"))
	disk := script.Quote(args.String("disk_path"))
	if lower(args.String("controller_type")) == "dvd" {
		return script.New().
			Add("$drive = Get-VMDvdDrive -VMName %s | Where-Object { $_.Path -eq %s }", vm, disk).
			Add("if ($drive) { Remove-VMDvdDrive -VMDvdDrive $drive }")
	}
	return script.New().
		Add("$drive = Get-VMHardDiskDrive -VMName %s | Where-Object { $_.Path -eq %s }", vm, disk).
		Add("if ($drive) { Remove-VMHardDiskDrive -VMHardDiskDrive $drive }")
}
