package service

import (
	"fmt"

	"github.com/mautops/workspace-gin/internal/model"
	"github.com/mautops/workspace-gin/internal/repository"
)

// HierarchyService 工作区层级服务接口
// 对注入的工作区树做纯读遍历,树结构由外部目录服务同步
type HierarchyService interface {
	Sync(workspace *model.WorkspaceModel) error
	Get(id string) (*model.WorkspaceModel, error)
	AncestorsOf(id string) ([]*model.WorkspaceModel, error)
	IsAncestor(candidateAncestorID string, workspaceID string, reflexive bool) (bool, error)
	DescendantsOf(id string, levels int) ([]*model.WorkspaceModel, error)
}

// 遍历深度上限,防止脏数据成环时无限循环
const maxHierarchyDepth = 64

// hierarchyService 工作区层级服务实现
type hierarchyService struct {
	workspaceRepo repository.WorkspaceRepository
}

// NewHierarchyService 创建工作区层级服务
func NewHierarchyService(workspaceRepo repository.WorkspaceRepository) HierarchyService {
	return &hierarchyService{workspaceRepo: workspaceRepo}
}

// Sync 同步一条工作区记录(目录服务推送)
func (s *hierarchyService) Sync(workspace *model.WorkspaceModel) error {
	if err := workspace.Validate(); err != nil {
		return err
	}
	// 非 ROOT 工作区的父节点必须已存在,保证父链始终可达
	if workspace.ParentID != nil {
		if _, err := s.workspaceRepo.FindByID(*workspace.ParentID); err != nil {
			if isRecordNotFound(err) {
				return fmt.Errorf("parent workspace %q: %w", *workspace.ParentID, ErrNotFound)
			}
			return fmt.Errorf("failed to load parent workspace: %w", err)
		}
	}
	return s.workspaceRepo.Save(workspace)
}

// Get 根据 ID 获取工作区
func (s *hierarchyService) Get(id string) (*model.WorkspaceModel, error) {
	workspace, err := s.workspaceRepo.FindByID(id)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, fmt.Errorf("workspace %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}
	return workspace, nil
}

// AncestorsOf 返回从直接父节点到 ROOT 的有序祖先列表
func (s *hierarchyService) AncestorsOf(id string) ([]*model.WorkspaceModel, error) {
	workspace, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	var ancestors []*model.WorkspaceModel
	visited := map[string]bool{workspace.ID: true}
	current := workspace
	for current.ParentID != nil {
		if len(ancestors) >= maxHierarchyDepth {
			return nil, fmt.Errorf("workspace hierarchy deeper than %d, aborting traversal", maxHierarchyDepth)
		}
		parent, err := s.Get(*current.ParentID)
		if err != nil {
			return nil, err
		}
		if visited[parent.ID] {
			return nil, fmt.Errorf("workspace hierarchy contains a cycle at %q", parent.ID)
		}
		visited[parent.ID] = true
		ancestors = append(ancestors, parent)
		current = parent
	}
	return ancestors, nil
}

// IsAncestor 判断 candidateAncestorID 是否为 workspaceID 的祖先
// reflexive 为 true 时工作区视为自己的祖先;两处调用点(委托校验、升级目标)
// 必须显式指定,避免语义漂移
func (s *hierarchyService) IsAncestor(candidateAncestorID string, workspaceID string, reflexive bool) (bool, error) {
	if candidateAncestorID == workspaceID {
		if reflexive {
			// 自反模式下仍要求工作区真实存在
			if _, err := s.Get(workspaceID); err != nil {
				return false, err
			}
			return true, nil
		}
		return false, nil
	}

	ancestors, err := s.AncestorsOf(workspaceID)
	if err != nil {
		return false, err
	}
	for _, ancestor := range ancestors {
		if ancestor.ID == candidateAncestorID {
			return true, nil
		}
	}
	return false, nil
}

// DescendantsOf 广度优先枚举后代工作区
// levels > 0 时限定层数,levels == 1 即直接子节点;levels <= 0 不限深度
func (s *hierarchyService) DescendantsOf(id string, levels int) ([]*model.WorkspaceModel, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}

	var descendants []*model.WorkspaceModel
	frontier := []string{id}
	depth := 0
	for len(frontier) > 0 {
		if levels > 0 && depth >= levels {
			break
		}
		if depth >= maxHierarchyDepth {
			return nil, fmt.Errorf("workspace hierarchy deeper than %d, aborting traversal", maxHierarchyDepth)
		}
		var next []string
		for _, parentID := range frontier {
			children, err := s.workspaceRepo.FindChildren(parentID)
			if err != nil {
				return nil, fmt.Errorf("failed to load children of %q: %w", parentID, err)
			}
			for _, child := range children {
				descendants = append(descendants, child)
				next = append(next, child.ID)
			}
		}
		frontier = next
		depth++
	}
	return descendants, nil
}
