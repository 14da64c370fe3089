package model_test

import (
	"testing"
	"time"

	"fieldlog/internal/model"
)

func validPeriod() model.TimePeriod {
	return model.TimePeriod{
		UserID:     "user-1",
		WorkDate:   "2026-03-12",
		StartTime:  time.Date(2026, 3, 12, 8, 0, 0, 0, time.UTC),
		FinishTime: time.Date(2026, 3, 12, 12, 0, 0, 0, time.UTC),
		ProjectID:  "proj-9",
	}
}

func TestTimePeriod_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.TimePeriod)
		wantErr bool
	}{
		{"valid", func(p *model.TimePeriod) {}, false},
		{"missing user", func(p *model.TimePeriod) { p.UserID = "" }, true},
		{"bad work date", func(p *model.TimePeriod) { p.WorkDate = "12/03/2026" }, true},
		{"zero start", func(p *model.TimePeriod) { p.StartTime = time.Time{} }, true},
		{"finish equals start", func(p *model.TimePeriod) { p.FinishTime = p.StartTime }, true},
		{"finish before start", func(p *model.TimePeriod) {
			p.FinishTime = p.StartTime.Add(-time.Hour)
		}, true},
		{"no workload reference", func(p *model.TimePeriod) { p.ProjectID = "" }, true},
		{"two workload references", func(p *model.TimePeriod) { p.VehicleID = "veh-1" }, true},
		{"vehicle instead of project", func(p *model.TimePeriod) {
			p.ProjectID = ""
			p.VehicleID = "veh-1"
		}, false},
		{"workshop task instead of project", func(p *model.TimePeriod) {
			p.ProjectID = ""
			p.WorkshopTaskID = "task-1"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPeriod()
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTimePeriod_Workload(t *testing.T) {
	p := validPeriod()
	kind, id := p.Workload()
	if kind != "project" || id != "proj-9" {
		t.Errorf("Workload() = (%s, %s), want (project, proj-9)", kind, id)
	}

	p.ProjectID = ""
	p.WorkshopTaskID = "task-3"
	kind, id = p.Workload()
	if kind != "workshop_task" || id != "task-3" {
		t.Errorf("Workload() = (%s, %s), want (workshop_task, task-3)", kind, id)
	}
}

func TestUser_CanEditPeriod(t *testing.T) {
	owner := &model.User{ID: "user-1", Role: model.RoleFieldWorker}
	other := &model.User{ID: "user-2", Role: model.RoleFieldWorker}
	supervisor := &model.User{ID: "sup-1", Role: model.RoleSupervisor}
	admin := &model.User{ID: "adm-1", Role: model.RoleAdmin}

	period := func(status model.PeriodStatus) *model.TimePeriod {
		p := validPeriod()
		p.Status = status
		return &p
	}

	tests := []struct {
		name   string
		user   *model.User
		status model.PeriodStatus
		want   bool
	}{
		{"owner edits submitted", owner, model.StatusSubmitted, true},
		{"other worker cannot edit submitted", other, model.StatusSubmitted, false},
		{"supervisor edits submitted", supervisor, model.StatusSubmitted, true},
		{"owner cannot edit supervisor approved", owner, model.StatusSupervisorApproved, false},
		{"supervisor edits supervisor approved", supervisor, model.StatusSupervisorApproved, true},
		{"admin edits supervisor approved", admin, model.StatusSupervisorApproved, true},
		{"admin cannot edit admin approved", admin, model.StatusAdminApproved, false},
		{"owner cannot edit admin approved", owner, model.StatusAdminApproved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.CanEditPeriod(period(tt.status)); got != tt.want {
				t.Errorf("CanEditPeriod() = %v, want %v", got, tt.want)
			}
		})
	}
}
