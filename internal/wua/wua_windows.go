//go:build windows

// Package wua drives the Windows Update Agent through its COM automation
// surface.
package wua

import (
	"fmt"
	"runtime"
	"time"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"

	"github.com/ironhive/agent/internal/agent"
	"github.com/ironhive/agent/internal/msg"
)

const searchAllQuery = "IsInstalled=1 or IsInstalled=0 and Type='Software' and IsHidden=0"

// GetUpdates lists software updates visible to the update agent,
// installed or not.
func GetUpdates() ([]msg.WUAPackage, error) {
	var packages []msg.WUAPackage
	err := withSession(func(session *ole.IDispatch) error {
		var err error
		packages, err = searchUpdates(session, searchAllQuery)
		return err
	})
	return packages, err
}

// InstallUpdates installs each update matched by GUID, then settles for
// five seconds and reports whether a reboot is pending.
func InstallUpdates(guids []string) (bool, error) {
	err := withSession(func(session *ole.IDispatch) error {
		for _, guid := range guids {
			if err := installByGUID(session, guid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	time.Sleep(5 * time.Second)
	return agent.RebootRequired(), nil
}

// withSession pins the goroutine to one OS thread for the COM lifetime
// and hands the callback a live Microsoft.Update.Session.
func withSession(fn func(session *ole.IDispatch) error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		oleErr, ok := err.(*ole.OleError)
		if !ok || oleErr.Code() != 0x00000001 {
			return fmt.Errorf("COM initialization: %w", err)
		}
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("Microsoft.Update.Session")
	if err != nil {
		return fmt.Errorf("create update session: %w", err)
	}
	defer unknown.Release()

	session, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return fmt.Errorf("session IDispatch: %w", err)
	}
	defer session.Release()

	return fn(session)
}

func searchUpdates(session *ole.IDispatch, query string) ([]msg.WUAPackage, error) {
	searcherRaw, err := oleutil.CallMethod(session, "CreateUpdateSearcher")
	if err != nil {
		return nil, fmt.Errorf("create searcher: %w", err)
	}
	searcher := searcherRaw.ToIDispatch()
	defer searcher.Release()

	resultRaw, err := oleutil.CallMethod(searcher, "Search", query)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	result := resultRaw.ToIDispatch()
	defer result.Release()

	updatesRaw, err := oleutil.GetProperty(result, "Updates")
	if err != nil {
		return nil, fmt.Errorf("search result updates: %w", err)
	}
	updates := updatesRaw.ToIDispatch()
	defer updates.Release()

	count, err := collectionCount(updates)
	if err != nil {
		return nil, err
	}

	packages := make([]msg.WUAPackage, 0, count)
	for i := 0; i < count; i++ {
		itemRaw, err := oleutil.GetProperty(updates, "Item", i)
		if err != nil {
			return nil, fmt.Errorf("update %d: %w", i, err)
		}
		item := itemRaw.ToIDispatch()
		pkg, err := extractPackage(item)
		item.Release()
		if err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}
	return packages, nil
}

func installByGUID(session *ole.IDispatch, guid string) error {
	searcherRaw, err := oleutil.CallMethod(session, "CreateUpdateSearcher")
	if err != nil {
		return fmt.Errorf("create searcher: %w", err)
	}
	searcher := searcherRaw.ToIDispatch()
	defer searcher.Release()

	resultRaw, err := oleutil.CallMethod(searcher, "Search", "UpdateID="+guid)
	if err != nil {
		return fmt.Errorf("search %s: %w", guid, err)
	}
	result := resultRaw.ToIDispatch()
	defer result.Release()

	updatesRaw, err := oleutil.GetProperty(result, "Updates")
	if err != nil {
		return fmt.Errorf("search result updates: %w", err)
	}
	updates := updatesRaw.ToIDispatch()
	defer updates.Release()

	count, err := collectionCount(updates)
	if err != nil {
		return err
	}

	for i := 0; i < count; i++ {
		itemRaw, err := oleutil.GetProperty(updates, "Item", i)
		if err != nil {
			return fmt.Errorf("update %d: %w", i, err)
		}
		item := itemRaw.ToIDispatch()
		err = installOne(session, item)
		item.Release()
		if err != nil {
			return err
		}
	}
	return nil
}

func installOne(session, update *ole.IDispatch) error {
	if accepted, err := oleutil.GetProperty(update, "EulaAccepted"); err == nil {
		if b, ok := accepted.Value().(bool); ok && !b {
			if _, err := oleutil.CallMethod(update, "AcceptEula"); err != nil {
				return fmt.Errorf("accept EULA: %w", err)
			}
		}
	}

	collUnknown, err := oleutil.CreateObject("Microsoft.Update.UpdateColl")
	if err != nil {
		return fmt.Errorf("create update collection: %w", err)
	}
	defer collUnknown.Release()
	coll, err := collUnknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return fmt.Errorf("collection IDispatch: %w", err)
	}
	defer coll.Release()

	if _, err := oleutil.CallMethod(coll, "Add", update); err != nil {
		return fmt.Errorf("add update to collection: %w", err)
	}

	downloaderRaw, err := oleutil.CallMethod(session, "CreateUpdateDownloader")
	if err != nil {
		return fmt.Errorf("create downloader: %w", err)
	}
	downloader := downloaderRaw.ToIDispatch()
	defer downloader.Release()
	if _, err := oleutil.PutProperty(downloader, "Updates", coll); err != nil {
		return fmt.Errorf("set downloader updates: %w", err)
	}
	if _, err := oleutil.CallMethod(downloader, "Download"); err != nil {
		return fmt.Errorf("download: %w", err)
	}

	installerRaw, err := oleutil.CallMethod(session, "CreateUpdateInstaller")
	if err != nil {
		return fmt.Errorf("create installer: %w", err)
	}
	installer := installerRaw.ToIDispatch()
	defer installer.Release()
	if _, err := oleutil.PutProperty(installer, "Updates", coll); err != nil {
		return fmt.Errorf("set installer updates: %w", err)
	}
	if _, err := oleutil.CallMethod(installer, "Install"); err != nil {
		return fmt.Errorf("install: %w", err)
	}
	return nil
}

func extractPackage(update *ole.IDispatch) (msg.WUAPackage, error) {
	var pkg msg.WUAPackage

	pkg.Title = stringProp(update, "Title")
	pkg.Description = stringProp(update, "Description")
	pkg.SupportURL = stringProp(update, "SupportUrl")
	pkg.Severity = stringProp(update, "MsrcSeverity")
	pkg.Installed = boolProp(update, "IsInstalled")
	pkg.Downloaded = boolProp(update, "IsDownloaded")

	identityRaw, err := oleutil.GetProperty(update, "Identity")
	if err != nil {
		return pkg, fmt.Errorf("update identity: %w", err)
	}
	identity := identityRaw.ToIDispatch()
	pkg.GUID = stringProp(identity, "UpdateID")
	if rev, err := oleutil.GetProperty(identity, "RevisionNumber"); err == nil {
		if n, ok := rev.Value().(int32); ok {
			pkg.RevisionNumber = n
		}
	}
	identity.Release()

	categoriesRaw, err := oleutil.GetProperty(update, "Categories")
	if err == nil {
		categories := categoriesRaw.ToIDispatch()
		count, _ := collectionCount(categories)
		for i := 0; i < count; i++ {
			itemRaw, err := oleutil.GetProperty(categories, "Item", i)
			if err != nil {
				continue
			}
			item := itemRaw.ToIDispatch()
			pkg.Categories = append(pkg.Categories, stringProp(item, "Name"))
			pkg.CategoryIDs = append(pkg.CategoryIDs, stringProp(item, "CategoryID"))
			item.Release()
		}
		categories.Release()
	}

	pkg.KBArticleIDs = stringCollection(update, "KBArticleIDs")
	pkg.MoreInfoURLs = stringCollection(update, "MoreInfoUrls")

	return pkg, nil
}

func stringCollection(obj *ole.IDispatch, prop string) []string {
	collRaw, err := oleutil.GetProperty(obj, prop)
	if err != nil {
		return nil
	}
	coll := collRaw.ToIDispatch()
	defer coll.Release()

	count, err := collectionCount(coll)
	if err != nil {
		return nil
	}
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		itemRaw, err := oleutil.GetProperty(coll, "Item", i)
		if err != nil {
			continue
		}
		if s, ok := itemRaw.Value().(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func collectionCount(coll *ole.IDispatch) (int, error) {
	countRaw, err := oleutil.GetProperty(coll, "Count")
	if err != nil {
		return 0, fmt.Errorf("collection count: %w", err)
	}
	return int(countRaw.Val), nil
}

func stringProp(obj *ole.IDispatch, name string) string {
	v, err := oleutil.GetProperty(obj, name)
	if err != nil {
		return ""
	}
	if s, ok := v.Value().(string); ok {
		return s
	}
	return ""
}

func boolProp(obj *ole.IDispatch, name string) bool {
	v, err := oleutil.GetProperty(obj, name)
	if err != nil {
		return false
	}
	b, _ := v.Value().(bool)
	return b
}
