package core

// sampleHandlers is a two-handler route file in the shape the pipeline
// targets: one fully featured handler (early-exit guard, try/catch with a
// nested error payload) and one minimal handler whose route has no
// operation-table entry.
const sampleHandlers = `import express from "express";
import { sendDebugResponse, logger } from "./utils";

const router = express.Router();

router.get(
  "/environments",
  asyncHandler(async (req, res): Promise<void> => {
    const startTime = Date.now();

    logger.info("GET /environments", {
      component: "IntegrationsRouter",
    });

    if (!puppetserverService) {
      logger.warn("Puppetserver service is not configured");
      res.status(503).json({ error: { code: "NOT_CONFIGURED", message: "Puppetserver is not configured" } });
      return;
    }

    try {
      const environments = await puppetserverService.listEnvironments();
      res.json(environments);
    } catch (error) {
      const duration = Date.now() - startTime;
      logger.error("Failed to list environments");
      res.status(500).json({
        error: {
          code: "INTERNAL_ERROR",
          message: "Failed to list environments",
          details: { hint: "check puppetserver connectivity" },
        },
      });
    }
  })
);

router.get(
  "/unknown/route",
  asyncHandler(async (req, res): Promise<void> => {
    const startTime = Date.now();

    try {
      const data = await puppetserverService.fetch();
      res.json(data);
    } catch (error) {
      const duration = Date.now() - startTime;
      res.status(500).json({ error: { code: "INTERNAL_ERROR", message: "fetch failed" } });
    }
  })
);

export default router;
`

func testTable() OperationTable {
	return OperationTable{
		{Method: "get", Path: "/environments", Name: "GET /api/integrations/puppetserver/environments"},
	}
}
