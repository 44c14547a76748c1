package repository

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func Test_parsePorcelainStatus(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    []PathStatus
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"modified_unstaged",
			" M file.txt\n",
			[]PathStatus{{Staging: ' ', Worktree: 'M', Path: "file.txt"}},
			false},
		{"staged_and_unstaged",
			"MM dir/file.txt\n",
			[]PathStatus{{Staging: 'M', Worktree: 'M', Path: "dir/file.txt"}},
			false},
		{"untracked",
			"?? new.txt\n",
			[]PathStatus{{Staging: '?', Worktree: '?', Path: "new.txt"}},
			false},
		{"both_modified",
			"UU conflicted.txt\n",
			[]PathStatus{{Staging: 'U', Worktree: 'U', Path: "conflicted.txt"}},
			false},
		{"deleted_by_us",
			"DU gone.txt\n",
			[]PathStatus{{Staging: 'D', Worktree: 'U', Path: "gone.txt"}},
			false},
		{"renamed",
			"R  old.txt -> new.txt\n",
			[]PathStatus{{Staging: 'R', Worktree: ' ', Path: "new.txt", OrigPath: "old.txt"}},
			false},
		{"renamed_quoted",
			`R  "old name.txt" -> "new name.txt"` + "\n",
			[]PathStatus{{Staging: 'R', Worktree: ' ', Path: "new name.txt", OrigPath: "old name.txt"}},
			false},
		{"quoted_path",
			`?? "with space.txt"` + "\n",
			[]PathStatus{{Staging: '?', Worktree: '?', Path: "with space.txt"}},
			false},
		{"arrow_in_path",
			`?? "a -> b"` + "\n",
			[]PathStatus{{Staging: '?', Worktree: '?', Path: "a -> b"}},
			false},
		{"arrow_in_conflicted_path",
			`UU "a -> b"` + "\n",
			[]PathStatus{{Staging: 'U', Worktree: 'U', Path: "a -> b"}},
			false},
		{"multiple",
			"UU a.txt\nDU b.txt\n?? c.txt\n",
			[]PathStatus{
				{Staging: 'U', Worktree: 'U', Path: "a.txt"},
				{Staging: 'D', Worktree: 'U', Path: "b.txt"},
				{Staging: '?', Worktree: '?', Path: "c.txt"},
			},
			false},
		{"invalid_line", "garbage\n", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePorcelainStatus(tt.out)
			if (err != nil) != tt.wantErr {
				t.Errorf("parsePorcelainStatus() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parsePorcelainStatus() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPathStatus_Unmerged(t *testing.T) {
	tests := []struct {
		name string
		ps   PathStatus
		want bool
	}{
		{"both_modified", PathStatus{Staging: 'U', Worktree: 'U'}, true},
		{"deleted_by_us", PathStatus{Staging: 'D', Worktree: 'U'}, true},
		{"deleted_by_them", PathStatus{Staging: 'U', Worktree: 'D'}, true},
		{"added_by_us", PathStatus{Staging: 'A', Worktree: 'U'}, true},
		{"added_by_them", PathStatus{Staging: 'U', Worktree: 'A'}, true},
		{"both_added", PathStatus{Staging: 'A', Worktree: 'A'}, true},
		{"both_deleted", PathStatus{Staging: 'D', Worktree: 'D'}, true},
		{"modified", PathStatus{Staging: ' ', Worktree: 'M'}, false},
		{"staged_add", PathStatus{Staging: 'A', Worktree: ' '}, false},
		{"staged_delete", PathStatus{Staging: 'D', Worktree: ' '}, false},
		{"untracked", PathStatus{Staging: '?', Worktree: '?'}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ps.Unmerged(); got != tt.want {
				t.Errorf("Unmerged() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPathStatus_oursAbsent(t *testing.T) {
	tests := []struct {
		name string
		ps   PathStatus
		want bool
	}{
		{"both_deleted", PathStatus{Staging: 'D', Worktree: 'D'}, true},
		{"deleted_by_us", PathStatus{Staging: 'D', Worktree: 'U'}, true},
		{"added_by_them", PathStatus{Staging: 'U', Worktree: 'A'}, true},
		{"deleted_by_them", PathStatus{Staging: 'U', Worktree: 'D'}, false},
		{"added_by_us", PathStatus{Staging: 'A', Worktree: 'U'}, false},
		{"both_modified", PathStatus{Staging: 'U', Worktree: 'U'}, false},
		{"both_added", PathStatus{Staging: 'A', Worktree: 'A'}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ps.oursAbsent(); got != tt.want {
				t.Errorf("oursAbsent() = %v, want %v", got, tt.want)
			}
		})
	}
}
